package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/http/response"
	"github.com/diagnosis/consult-sessions/internal/service"
)

// ListAllBookings lists bookings across all users, optionally filtered
// by status.
func (h *Handlers) ListAllBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var statusPtr *domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		statusPtr = &st
	}

	bookings, err := h.bookingService.ListAllBookings(r.Context(), statusPtr, limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to retrieve bookings")
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	domain.SessionActuals
}

// UpdateBookingStatus accepts the externally driven session
// transitions (confirmed → ongoing → completed) with their measured
// times.
func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	next, ok := domain.ParseBookingStatus(req.Status)
	if !ok {
		response.BadRequest(w, "Invalid status value")
		return
	}

	booking, err := h.bookingService.Transition(r.Context(), id, next, &req.SessionActuals)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// GenerateSlots bulk-creates slots over a date range. Existing slots
// are not touched.
func (h *Handlers) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	created, err := h.slotService.Generate(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"created": created})
}

type updateSlotRequest struct {
	IsAvailable bool `json:"is_available"`
}

// UpdateSlot enables or disables a slot administratively.
func (h *Handlers) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid slot id")
		return
	}

	var req updateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.slotService.SetAvailability(r.Context(), id, req.IsAvailable); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
