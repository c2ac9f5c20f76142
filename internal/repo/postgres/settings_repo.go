package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type SettingsRepo interface {
	Get(ctx context.Context) (domain.Settings, error)
}

// SettingsRepoImpl reads the singleton settings row, falling back to
// the configured defaults when the row has not been provisioned.
type SettingsRepoImpl struct {
	pool     *pgxpool.Pool
	defaults domain.Settings
}

func NewSettingsRepo(pool *pgxpool.Pool, defaults domain.Settings) *SettingsRepoImpl {
	return &SettingsRepoImpl{pool: pool, defaults: defaults}
}

func (r *SettingsRepoImpl) Get(ctx context.Context) (domain.Settings, error) {
	const q = `SELECT hourly_rate, overtime_rate, cancellation_hours
		FROM consultation_settings LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Settings
	err := r.pool.QueryRow(ctx, q).Scan(&s.HourlyRate, &s.OvertimeRate, &s.CancellationHours)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

var _ SettingsRepo = (*SettingsRepoImpl)(nil)
