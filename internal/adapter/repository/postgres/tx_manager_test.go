package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"

	"github.com/fxledger/fxledger/internal/usecase"
)

func newTestTxManager(pool pgxPool) *TxManager {
	return newTxManagerWithPool(pool, NewRetrier(zerolog.Nop()))
}

func TestTxManagerCommitsOnSuccess(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectCommit()

	manager := newTestTxManager(mockPool)
	err := manager.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Transaction) error {
		if tx.(*Tx).PgxTx() == nil {
			t.Fatal("expected underlying pgx transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectRollback()

	manager := newTestTxManager(mockPool)
	fnErr := errors.New("insert failed")
	err := manager.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Transaction) error {
		return fnErr
	})
	if !errors.Is(err, fnErr) {
		t.Fatalf("expected fn error, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTxManagerBeginError(t *testing.T) {
	mockPool := newMockPool(t)
	mockErr := errors.New("begin failed")
	mockPool.ExpectBegin().WillReturnError(mockErr)

	manager := newTestTxManager(mockPool)
	err := manager.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Transaction) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})
	if !errors.Is(err, mockErr) {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestTxManagerRetriesSerializationFailure(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})
	mockPool.ExpectBegin()
	mockPool.ExpectCommit()

	manager := newTestTxManager(mockPool)
	attempts := 0
	err := manager.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Transaction) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected the transaction to run twice, ran %d times", attempts)
	}

	assertExpectations(t, mockPool)
}

func TestTxManagerDeadlockOnWriteRetries(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectRollback()
	mockPool.ExpectBegin()
	mockPool.ExpectCommit()

	manager := newTestTxManager(mockPool)
	attempts := 0
	err := manager.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Transaction) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected the transaction to run twice, ran %d times", attempts)
	}

	assertExpectations(t, mockPool)
}

func TestTxManagerBoundsTransactionLifetime(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectCommit()

	manager := newTestTxManager(mockPool)
	err := manager.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Transaction) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected transaction context to carry a deadline")
		}
		if remaining := time.Until(deadline); remaining > usecase.DefaultTransactionTimeout {
			t.Errorf("deadline %s exceeds transaction timeout", remaining)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
