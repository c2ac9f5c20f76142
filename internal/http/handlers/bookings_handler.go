package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/http/middleware"
	"github.com/diagnosis/consult-sessions/internal/http/response"
)

// CreateBooking handles consultation booking creation for the
// authenticated client.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	booking, err := h.bookingService.CreateBooking(r.Context(), claims.Sub, claims.Email, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// ListBookings lists the authenticated user's bookings, newest first,
// with any review embedded.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	limit, offset := parsePagination(r)

	bookings, err := h.bookingService.ListUserBookings(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to retrieve bookings")
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}

// GetBooking returns a single booking owned by the authenticated user.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking id")
		return
	}

	booking, err := h.bookingService.GetBooking(r.Context(), id, claims.Sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// CancelBooking cancels the booking when the cancellation window still
// allows it, releasing the slot.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking id")
		return
	}

	var req domain.CancelBookingRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.bookingService.CancelBooking(r.Context(), id, claims.Sub, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
