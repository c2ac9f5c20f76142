package domain

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TimeSlot is a bookable (date, time) unit with finite capacity.
// (Date, Time) is unique. Slots are created by schedule generation and
// mutated only through Reserve/Release; they are never deleted while a
// booking references them.
type TimeSlot struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"booked_count"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Bookable reports whether the slot can accept one more reservation.
func (s *TimeSlot) Bookable() bool {
	return s.IsAvailable && s.BookedCount < s.Capacity
}

// SlotDay groups the open times of a single calendar day, ordered
// ascending.
type SlotDay struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// SessionStart combines a calendar date with a wall-clock "HH:MM"
// value into the exact session start instant.
func SessionStart(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid time %q", ErrValidation, clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
