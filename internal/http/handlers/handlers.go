package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/http/response"
	"github.com/diagnosis/consult-sessions/internal/service"
)

type Handlers struct {
	slotService    service.SlotService
	bookingService service.BookingService
	reviewService  service.ReviewService
}

func New(slotService service.SlotService, bookingService service.BookingService, reviewService service.ReviewService) *Handlers {
	return &Handlers{
		slotService:    slotService,
		bookingService: bookingService,
		reviewService:  reviewService,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps the error taxonomy onto HTTP statuses. SlotFull
// and InsufficientFunds are user-actionable 422s, not server failures.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.Unprocessable(w, err.Error(), response.CodeInvalidInput)
	case errors.Is(err, domain.ErrSlotFull):
		response.Unprocessable(w, err.Error(), response.CodeSlotFull)
	case errors.Is(err, domain.ErrSlotNotFound):
		response.Unprocessable(w, err.Error(), response.CodeSlotNotFound)
	case errors.Is(err, domain.ErrInsufficientFunds):
		response.Unprocessable(w, err.Error(), response.CodeInsufficientFunds)
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Unprocessable(w, err.Error(), response.CodeInvalidState)
	case errors.Is(err, domain.ErrUnauthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, "Internal server error")
	}
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
