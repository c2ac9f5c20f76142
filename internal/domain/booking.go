package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingOngoing   BookingStatus = "ongoing"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingOngoing, BookingCompleted, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// transitions is the exhaustive table of allowed status moves.
// Completed and cancelled are terminal. The ongoing/completed
// transitions are accepted from an external trigger, never originated
// here.
var transitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingOngoing, BookingCancelled},
	BookingOngoing:   {BookingCompleted},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

const (
	MinHours = 1
	MaxHours = 10
)

// Booking is owned exclusively by the requesting user and references,
// but does not own, its TimeSlot. TotalCost is fixed at creation time
// and immutable thereafter. Bookings are never hard-deleted;
// cancellation is a terminal status.
type Booking struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	UserEmail string `json:"user_email"`
	SlotID    int64  `json:"slot_id"`

	Hours        int    `json:"hours"`
	TotalCost    int64  `json:"total_cost"`
	Requirements string `json:"requirements,omitempty"`

	SelectedDate time.Time `json:"selected_date"`
	SelectedTime string    `json:"selected_time"`

	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty"`
	ActualDuration  *int       `json:"actual_duration,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStart returns the exact instant the booked session begins.
func (b *Booking) SessionStart() (time.Time, error) {
	return SessionStart(b.SelectedDate, b.SelectedTime)
}

// SessionActuals carries the measured session times reported by the
// external process that drives ongoing/completed transitions.
type SessionActuals struct {
	StartTime *time.Time `json:"actual_start_time,omitempty"`
	EndTime   *time.Time `json:"actual_end_time,omitempty"`
	Duration  *int       `json:"actual_duration,omitempty"`
}

type CreateBookingRequest struct {
	Hours         int    `json:"hours"`
	SelectedDate  string `json:"selected_date"`
	SelectedTime  string `json:"selected_time"`
	Requirements  string `json:"requirements,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// Validate checks the request against the booking rules. The session
// start must be strictly in the future relative to now.
func (r *CreateBookingRequest) Validate(now time.Time) (time.Time, string, error) {
	if r.Hours < MinHours || r.Hours > MaxHours {
		return time.Time{}, "", fmt.Errorf("%w: hours must be between %d and %d", ErrValidation, MinHours, MaxHours)
	}
	if r.PaymentMethod != "" && r.PaymentMethod != "wallet" {
		return time.Time{}, "", fmt.Errorf("%w: unsupported payment method %q", ErrValidation, r.PaymentMethod)
	}
	date, err := time.Parse(DateLayout, r.SelectedDate)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid date %q", ErrValidation, r.SelectedDate)
	}
	start, err := SessionStart(date, r.SelectedTime)
	if err != nil {
		return time.Time{}, "", err
	}
	if !start.After(now) {
		return time.Time{}, "", fmt.Errorf("%w: session must be scheduled in the future", ErrValidation)
	}
	return date, r.SelectedTime, nil
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// UserBooking is a booking with its review embedded, as returned by the
// user listing.
type UserBooking struct {
	Booking
	Review *Review `json:"review,omitempty"`
}
