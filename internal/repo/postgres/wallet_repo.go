package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

// WalletRepo is the payment-ledger collaborator. The wallet's internal
// ledger lives in the account subsystem; this repo only exposes balance
// lookup and an atomic conditional debit that can join the booking
// transaction.
type WalletRepo interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Debit(ctx context.Context, q Querier, userID, amount int64) error
}

type WalletRepoImpl struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepoImpl { return &WalletRepoImpl{pool: pool} }

func (r *WalletRepoImpl) Balance(ctx context.Context, userID int64) (int64, error) {
	const q = `SELECT balance FROM wallets WHERE user_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var balance int64
	err := r.pool.QueryRow(ctx, q, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// Debit subtracts amount only when the balance covers it; the guard and
// the write are one statement, so a concurrent debit cannot drive the
// balance negative.
func (r *WalletRepoImpl) Debit(ctx context.Context, q Querier, userID, amount int64) error {
	const debit = `UPDATE wallets
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2`

	ct, err := q.Exec(ctx, debit, userID, amount)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

var _ WalletRepo = (*WalletRepoImpl)(nil)
