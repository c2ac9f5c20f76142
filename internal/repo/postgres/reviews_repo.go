package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type ReviewRepo interface {
	Create(ctx context.Context, rv *domain.Review) (*domain.Review, error)
	GetByBooking(ctx context.Context, bookingID int64) (*domain.Review, error)
}

type ReviewRepoImpl struct{ pool *pgxpool.Pool }

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepoImpl { return &ReviewRepoImpl{pool: pool} }

// Create inserts the review. The unique constraint on booking_id backs
// the one-review-per-booking rule even when two submissions race past
// the service-level precheck.
func (r *ReviewRepoImpl) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	const q = `INSERT INTO consultation_reviews (booking_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, booking_id, user_id, rating, comment, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out domain.Review
	err := r.pool.QueryRow(ctx, q, rv.BookingID, rv.UserID, rv.Rating, rv.Comment).Scan(
		&out.ID, &out.BookingID, &out.UserID, &out.Rating, &out.Comment, &out.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReviewRepoImpl) GetByBooking(ctx context.Context, bookingID int64) (*domain.Review, error) {
	const q = `SELECT id, booking_id, user_id, rating, comment, created_at
		FROM consultation_reviews WHERE booking_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rv domain.Review
	err := r.pool.QueryRow(ctx, q, bookingID).Scan(
		&rv.ID, &rv.BookingID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

var _ ReviewRepo = (*ReviewRepoImpl)(nil)
