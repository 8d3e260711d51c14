package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fxledger/fxledger/internal/usecase"
)

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager runs ledger write sequences in store transactions. Postings
// and their account rows always change together, so every engine write
// path goes through WithinTx.
type TxManager struct {
	pool    pgxPool
	retrier *Retrier
}

func NewTxManager(pool *pgxpool.Pool, retrier *Retrier) *TxManager {
	return newTxManagerWithPool(pool, retrier)
}

func newTxManagerWithPool(pool pgxPool, retrier *Retrier) *TxManager {
	return &TxManager{pool: pool, retrier: retrier}
}

// WithinTx runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise. When Postgres aborts the transaction with
// a serialization or deadlock failure the whole cycle is retried, so fn
// must be safe to re-run. Each attempt runs under its own deadline so a
// stuck write can not hold row locks indefinitely.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.Transaction) error) error {
	return m.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, usecase.DefaultTransactionTimeout)
		defer cancel()

		tx, err := m.pool.Begin(txCtx)
		if err != nil {
			return err
		}

		wrapped := &Tx{tx: tx}
		if err := fn(txCtx, wrapped); err != nil {
			_ = wrapped.Rollback(txCtx)
			return err
		}

		return wrapped.Commit(txCtx)
	})
}

// Tx adapts a pgx transaction to usecase.Transaction. Repositories
// recover the underlying pgx.Tx through PgxTx to issue statements on it.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
