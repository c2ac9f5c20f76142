package domain

import (
	"fmt"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is the single post-completion rating for a booking. At most
// one exists per booking.
type Review struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SubmitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

func (r *SubmitReviewRequest) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	}
	return nil
}
