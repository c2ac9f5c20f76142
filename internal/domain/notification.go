package domain

import "time"

type NotificationType string

const (
	NotifyBookingConfirmation NotificationType = "booking_confirmation"
	NotifyReminder24h         NotificationType = "reminder_24h"
	NotifyReminder1h          NotificationType = "reminder_1h"
)

// NotificationEvent is an append-only record of a reminder that should
// fire for a booking. Delivery is owned by the notify worker.
type NotificationEvent struct {
	ID          int64            `json:"id"`
	BookingID   int64            `json:"booking_id"`
	Type        NotificationType `json:"type"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
}

// DueNotification is a pending event joined with the delivery details
// the notify worker needs.
type DueNotification struct {
	ID           int64
	BookingID    int64
	Type         NotificationType
	ScheduledAt  time.Time
	UserEmail    string
	SelectedDate time.Time
	SelectedTime string
}

// ScheduleNotifications derives the notification records for a freshly
// confirmed booking: an immediate confirmation plus reminders 24 hours
// and 1 hour before the session start.
func ScheduleNotifications(b *Booking, now time.Time) ([]NotificationEvent, error) {
	start, err := b.SessionStart()
	if err != nil {
		return nil, err
	}
	return []NotificationEvent{
		{BookingID: b.ID, Type: NotifyBookingConfirmation, ScheduledAt: now},
		{BookingID: b.ID, Type: NotifyReminder24h, ScheduledAt: start.Add(-24 * time.Hour)},
		{BookingID: b.ID, Type: NotifyReminder1h, ScheduledAt: start.Add(-time.Hour)},
	}, nil
}
