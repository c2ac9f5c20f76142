package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingStatus(t *testing.T) {
	for _, valid := range []string{"pending", "confirmed", "ongoing", "completed", "cancelled"} {
		st, ok := ParseBookingStatus(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, BookingStatus(valid), st)
	}

	_, ok := ParseBookingStatus("canceled")
	assert.False(t, ok)
	_, ok = ParseBookingStatus("")
	assert.False(t, ok)
}

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to BookingStatus }{
		{BookingPending, BookingConfirmed},
		{BookingPending, BookingCancelled},
		{BookingConfirmed, BookingOngoing},
		{BookingConfirmed, BookingCancelled},
		{BookingOngoing, BookingCompleted},
	}

	allowedSet := map[[2]BookingStatus]bool{}
	for _, tr := range allowed {
		allowedSet[[2]BookingStatus{tr.from, tr.to}] = true
		assert.True(t, tr.from.CanTransitionTo(tr.to), "%s -> %s", tr.from, tr.to)
	}

	// Everything not listed is rejected, including any way out of the
	// terminal statuses.
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingOngoing, BookingCompleted, BookingCancelled}
	for _, from := range all {
		for _, to := range all {
			if allowedSet[[2]BookingStatus{from, to}] {
				continue
			}
			assert.False(t, from.CanTransitionTo(to), "%s -> %s should be rejected", from, to)
		}
	}
}

func TestCreateBookingRequestValidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	base := CreateBookingRequest{
		Hours:        3,
		SelectedDate: "2026-03-12",
		SelectedTime: "14:00",
	}

	t.Run("valid", func(t *testing.T) {
		date, clock, err := base.Validate(now)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-12", date.Format(DateLayout))
		assert.Equal(t, "14:00", clock)
	})

	t.Run("hours out of range", func(t *testing.T) {
		for _, hours := range []int{0, -1, 11} {
			req := base
			req.Hours = hours
			_, _, err := req.Validate(now)
			assert.ErrorIs(t, err, ErrValidation, "hours=%d", hours)
		}
	})

	t.Run("hours at bounds", func(t *testing.T) {
		for _, hours := range []int{1, 10} {
			req := base
			req.Hours = hours
			_, _, err := req.Validate(now)
			assert.NoError(t, err, "hours=%d", hours)
		}
	})

	t.Run("session in the past", func(t *testing.T) {
		req := base
		req.SelectedDate = "2026-03-09"
		_, _, err := req.Validate(now)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("session exactly now", func(t *testing.T) {
		req := base
		req.SelectedDate = "2026-03-10"
		req.SelectedTime = "12:00"
		_, _, err := req.Validate(now)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("later same day is fine", func(t *testing.T) {
		req := base
		req.SelectedDate = "2026-03-10"
		req.SelectedTime = "12:01"
		_, _, err := req.Validate(now)
		assert.NoError(t, err)
	})

	t.Run("malformed date and time", func(t *testing.T) {
		req := base
		req.SelectedDate = "12-03-2026"
		_, _, err := req.Validate(now)
		assert.ErrorIs(t, err, ErrValidation)

		req = base
		req.SelectedTime = "2pm"
		_, _, err = req.Validate(now)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("payment method", func(t *testing.T) {
		req := base
		req.PaymentMethod = "wallet"
		_, _, err := req.Validate(now)
		assert.NoError(t, err)

		req.PaymentMethod = "card"
		_, _, err = req.Validate(now)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestSessionStart(t *testing.T) {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	start, err := SessionStart(date, "09:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC), start)

	_, err = SessionStart(date, "9:30am")
	assert.True(t, errors.Is(err, ErrValidation))
}
