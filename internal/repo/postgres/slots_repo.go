package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type SlotRepo interface {
	ListAvailable(ctx context.Context, from time.Time) ([]domain.SlotDay, error)
	Reserve(ctx context.Context, q Querier, date time.Time, clock string) (int64, error)
	Release(ctx context.Context, q Querier, date time.Time, clock string) error
	CreateBatch(ctx context.Context, slots []domain.TimeSlot) (int64, error)
	SetAvailability(ctx context.Context, id int64, available bool) (bool, error)
}

type SlotRepoImpl struct{ pool *pgxpool.Pool }

func NewSlotRepo(pool *pgxpool.Pool) *SlotRepoImpl { return &SlotRepoImpl{pool: pool} }

func (r *SlotRepoImpl) ListAvailable(ctx context.Context, from time.Time) ([]domain.SlotDay, error) {
	const q = `SELECT slot_date, slot_time FROM consultation_slots
		WHERE is_available AND booked_count < capacity AND slot_date >= $1
		ORDER BY slot_date, slot_time`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := []domain.SlotDay{}
	for rows.Next() {
		var (
			date  time.Time
			clock string
		)
		if err := rows.Scan(&date, &clock); err != nil {
			return nil, err
		}
		day := date.Format(domain.DateLayout)
		if n := len(days); n > 0 && days[n-1].Date == day {
			days[n-1].Times = append(days[n-1].Times, clock)
		} else {
			days = append(days, domain.SlotDay{Date: day, Times: []string{clock}})
		}
	}
	return days, rows.Err()
}

// Reserve atomically checks capacity and increments booked_count in a
// single conditional UPDATE, so concurrent callers racing for the last
// unit serialize on the row and exactly one wins.
func (r *SlotRepoImpl) Reserve(ctx context.Context, q Querier, date time.Time, clock string) (int64, error) {
	const reserve = `UPDATE consultation_slots
		SET booked_count = booked_count + 1, updated_at = now()
		WHERE slot_date = $1 AND slot_time = $2 AND is_available AND booked_count < capacity
		RETURNING id`

	var id int64
	err := q.QueryRow(ctx, reserve, date, clock).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Nothing matched: either the slot is saturated or it does not
	// exist / is disabled.
	const exists = `SELECT 1 FROM consultation_slots
		WHERE slot_date = $1 AND slot_time = $2 AND is_available`
	var one int
	switch err := q.QueryRow(ctx, exists, date, clock).Scan(&one); {
	case err == nil:
		return 0, domain.ErrSlotFull
	case errors.Is(err, pgx.ErrNoRows):
		return 0, domain.ErrSlotNotFound
	default:
		return 0, err
	}
}

func (r *SlotRepoImpl) Release(ctx context.Context, q Querier, date time.Time, clock string) error {
	const release = `UPDATE consultation_slots
		SET booked_count = GREATEST(booked_count - 1, 0), updated_at = now()
		WHERE slot_date = $1 AND slot_time = $2`

	_, err := q.Exec(ctx, release, date, clock)
	return err
}

func (r *SlotRepoImpl) CreateBatch(ctx context.Context, slots []domain.TimeSlot) (int64, error) {
	const q = `INSERT INTO consultation_slots (slot_date, slot_time, capacity, is_available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot_date, slot_time) DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var created int64
	for _, s := range slots {
		ct, err := r.pool.Exec(ctx, q, s.Date, s.Time, s.Capacity, s.IsAvailable)
		if err != nil {
			return created, err
		}
		created += ct.RowsAffected()
	}
	return created, nil
}

func (r *SlotRepoImpl) SetAvailability(ctx context.Context, id int64, available bool) (bool, error) {
	const q = `UPDATE consultation_slots SET is_available = $2, updated_at = now() WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, available)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ SlotRepo = (*SlotRepoImpl)(nil)
