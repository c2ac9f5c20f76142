package handlers

import (
	"net/http"
	"time"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/http/response"
)

// ListSlots returns the open slots from the requested date onward,
// together with the current rates. Defaults to today.
func (h *Handlers) ListSlots(w http.ResponseWriter, r *http.Request) {
	from, _ := time.Parse(domain.DateLayout, time.Now().Format(domain.DateLayout))
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			response.BadRequest(w, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}

	listing, err := h.slotService.ListOpen(r.Context(), from)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}
