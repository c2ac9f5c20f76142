package domain

import "time"

// CanCancel evaluates the cancellation window against the booking's own
// session timestamp, not day boundaries. Only pending and confirmed
// bookings are cancellable, and only while the session start is at
// least cancellationHours away.
func CanCancel(b *Booking, now time.Time, cancellationHours int) bool {
	if b.Status != BookingPending && b.Status != BookingConfirmed {
		return false
	}
	start, err := b.SessionStart()
	if err != nil {
		return false
	}
	return start.Sub(now) >= time.Duration(cancellationHours)*time.Hour
}
