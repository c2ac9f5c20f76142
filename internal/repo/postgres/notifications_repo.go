package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type NotificationRepo interface {
	CreateBatch(ctx context.Context, q Querier, events []domain.NotificationEvent) error
	ListDue(ctx context.Context, before time.Time, limit int) ([]domain.DueNotification, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}

type NotificationRepoImpl struct{ pool *pgxpool.Pool }

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepoImpl {
	return &NotificationRepoImpl{pool: pool}
}

func (r *NotificationRepoImpl) CreateBatch(ctx context.Context, q Querier, events []domain.NotificationEvent) error {
	const ins = `INSERT INTO notification_events (booking_id, type, scheduled_at)
		VALUES ($1, $2, $3)`

	for _, ev := range events {
		if _, err := q.Exec(ctx, ins, ev.BookingID, ev.Type, ev.ScheduledAt); err != nil {
			return err
		}
	}
	return nil
}

// ListDue returns unsent events whose scheduled time has passed, with
// the recipient and session details joined in for delivery. Cancelled
// bookings are skipped.
func (r *NotificationRepoImpl) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.DueNotification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	const q = `SELECT n.id, n.booking_id, n.type, n.scheduled_at,
			b.user_email, b.selected_date, b.selected_time
		FROM notification_events n
		JOIN consultation_bookings b ON b.id = n.booking_id
		WHERE n.sent_at IS NULL AND n.scheduled_at <= $1 AND b.status <> 'cancelled'
		ORDER BY n.scheduled_at
		LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DueNotification, 0, limit)
	for rows.Next() {
		var dn domain.DueNotification
		if err := rows.Scan(
			&dn.ID, &dn.BookingID, &dn.Type, &dn.ScheduledAt,
			&dn.UserEmail, &dn.SelectedDate, &dn.SelectedTime,
		); err != nil {
			return nil, err
		}
		out = append(out, dn)
	}
	return out, rows.Err()
}

func (r *NotificationRepoImpl) MarkSent(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE notification_events SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, at)
	return err
}

var _ NotificationRepo = (*NotificationRepoImpl)(nil)
