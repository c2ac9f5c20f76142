package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/consult-sessions/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects published by this service. Session lifecycle transitions are
// consumed by the admin/ops tooling; review.submitted is consumed by the
// professional-profile service to recompute aggregate ratings.
const (
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	SessionStarted   = "session.started"
	SessionCompleted = "session.completed"
	ReviewSubmitted  = "review.submitted"

	NotifySend = "notify.send"
)

type BookingConfirmedEvent struct {
	BookingID    int64     `json:"booking_id"`
	UserID       int64     `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	Hours        int       `json:"hours"`
	TotalCost    int64     `json:"total_cost"`
	SelectedDate string    `json:"selected_date"`
	SelectedTime string    `json:"selected_time"`
	CreatedAt    time.Time `json:"created_at"`
}

type BookingCancelledEvent struct {
	BookingID   int64     `json:"booking_id"`
	UserID      int64     `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type SessionTransitionEvent struct {
	BookingID int64     `json:"booking_id"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

type ReviewSubmittedEvent struct {
	BookingID   int64     `json:"booking_id"`
	ReviewID    int64     `json:"review_id"`
	UserID      int64     `json:"user_id"`
	Rating      int       `json:"rating"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type NotifySendEvent struct {
	Type         string `json:"type"`
	Recipient    string `json:"recipient"`
	BookingID    int64  `json:"booking_id"`
	SelectedDate string `json:"selected_date"`
	SelectedTime string `json:"selected_time"`
}
