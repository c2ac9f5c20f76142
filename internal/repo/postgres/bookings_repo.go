package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type BookingRepo interface {
	Create(ctx context.Context, q Querier, b *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.UserBooking, error)
	ListAll(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	Cancel(ctx context.Context, q Querier, id int64, reason string, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, actuals *domain.SessionActuals) (bool, error)
}

type BookingRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl { return &BookingRepoImpl{pool: pool} }

const bookingCols = `id, user_id, user_email, slot_id,
hours, total_cost, requirements,
selected_date, selected_time,
status, payment_status,
cancellation_reason, cancelled_at,
actual_start_time, actual_end_time, actual_duration,
created_at, updated_at`

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(
		&b.ID, &b.UserID, &b.UserEmail, &b.SlotID,
		&b.Hours, &b.TotalCost, &b.Requirements,
		&b.SelectedDate, &b.SelectedTime,
		&b.Status, &b.PaymentStatus,
		&b.CancellationReason, &b.CancelledAt,
		&b.ActualStartTime, &b.ActualEndTime, &b.ActualDuration,
		&b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *BookingRepoImpl) Create(ctx context.Context, q Querier, b *domain.Booking) (*domain.Booking, error) {
	const ins = `INSERT INTO consultation_bookings (
		user_id, user_email, slot_id,
		hours, total_cost, requirements,
		selected_date, selected_time,
		status, payment_status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	RETURNING ` + bookingCols

	var out domain.Booking
	err := scanBooking(q.QueryRow(ctx, ins,
		b.UserID, b.UserEmail, b.SlotID,
		b.Hours, b.TotalCost, b.Requirements,
		b.SelectedDate, b.SelectedTime,
		b.Status, b.PaymentStatus,
	), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BookingRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM consultation_bookings WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := scanBooking(r.pool.QueryRow(ctx, q, id), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepoImpl) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.UserBooking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT
		b.id, b.user_id, b.user_email, b.slot_id,
		b.hours, b.total_cost, b.requirements,
		b.selected_date, b.selected_time,
		b.status, b.payment_status,
		b.cancellation_reason, b.cancelled_at,
		b.actual_start_time, b.actual_end_time, b.actual_duration,
		b.created_at, b.updated_at,
		r.id, r.rating, r.comment, r.created_at
	FROM consultation_bookings b
	LEFT JOIN consultation_reviews r ON r.booking_id = b.id
	WHERE b.user_id = $1
	ORDER BY b.created_at DESC
	LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.UserBooking, 0, limit)
	for rows.Next() {
		var (
			ub        domain.UserBooking
			reviewID  *int64
			rating    *int
			comment   *string
			createdAt *time.Time
		)
		if err := rows.Scan(
			&ub.ID, &ub.UserID, &ub.UserEmail, &ub.SlotID,
			&ub.Hours, &ub.TotalCost, &ub.Requirements,
			&ub.SelectedDate, &ub.SelectedTime,
			&ub.Status, &ub.PaymentStatus,
			&ub.CancellationReason, &ub.CancelledAt,
			&ub.ActualStartTime, &ub.ActualEndTime, &ub.ActualDuration,
			&ub.CreatedAt, &ub.UpdatedAt,
			&reviewID, &rating, &comment, &createdAt,
		); err != nil {
			return nil, err
		}
		if reviewID != nil {
			ub.Review = &domain.Review{
				ID:        *reviewID,
				BookingID: ub.ID,
				UserID:    ub.UserID,
				Rating:    *rating,
				CreatedAt: *createdAt,
			}
			if comment != nil {
				ub.Review.Comment = *comment
			}
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

func (r *BookingRepoImpl) ListAll(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM consultation_bookings`
	args := []any{}
	if status != nil {
		q += ` WHERE status = $1`
		args = append(args, *status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bs := make([]domain.Booking, 0, limit)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bs = append(bs, b)
	}
	return bs, rows.Err()
}

// Cancel moves a booking to cancelled if it is still in a cancellable
// status. Returning false means the booking was already past pending or
// confirmed when the update ran.
func (r *BookingRepoImpl) Cancel(ctx context.Context, q Querier, id int64, reason string, at time.Time) (bool, error) {
	const cancel = `UPDATE consultation_bookings
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = $3, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`

	ct, err := q.Exec(ctx, cancel, id, reason, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingRepoImpl) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, actuals *domain.SessionActuals) (bool, error) {
	const q = `UPDATE consultation_bookings
		SET status = $3,
			actual_start_time = COALESCE($4, actual_start_time),
			actual_end_time = COALESCE($5, actual_end_time),
			actual_duration = COALESCE($6, actual_duration),
			updated_at = now()
		WHERE id = $1 AND status = $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var start, end *time.Time
	var dur *int
	if actuals != nil {
		start, end, dur = actuals.StartTime, actuals.EndTime, actuals.Duration
	}

	ct, err := r.pool.Exec(ctx, q, id, from, to, start, end, dur)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ BookingRepo = (*BookingRepoImpl)(nil)
