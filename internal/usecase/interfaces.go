package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
)

// AssetRepository defines data access for assets.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	GetByCode(ctx context.Context, code string) (*domain.Asset, error)
	List(ctx context.Context) ([]*domain.Asset, error)
	Update(ctx context.Context, code string, newCode *string, precision *int32) error
	Delete(ctx context.Context, code string) error
}

// RateRepository defines data access for exchange rates.
type RateRepository interface {
	Set(ctx context.Context, rate *domain.Rate) error
	Delete(ctx context.Context, from, to string, at time.Time) error
	// GetLatest returns the most recent rate for the pair effective at or
	// before asOf; domain.ErrRateNotFound when there is none.
	GetLatest(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
	// ListAsOf returns for every known pair its most recent rate effective
	// at or before asOf. Used as the edge set of the cross-rate graph.
	ListAsOf(ctx context.Context, asOf time.Time) ([]*domain.Rate, error)
	List(ctx context.Context, from, to string) ([]*domain.Rate, error)
}

// AccountFilter narrows account listing.
type AccountFilter struct {
	Asset      string
	Type       *domain.AccountType
	CodePrefix string
}

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]*domain.Account, error)
	Update(ctx context.Context, code string, upd domain.AccountUpdate) error
	Delete(ctx context.Context, tx Transaction, code string) error
}

// StatementQuery narrows statement listing. Pending selects filtering by
// creation date instead of completion date and includes pending rows.
type StatementQuery struct {
	Start   *time.Time
	End     *time.Time
	Pending bool
	Tag     string
}

// PostingRepository defines data access for ledger postings.
type PostingRepository interface {
	Create(ctx context.Context, tx Transaction, posting *domain.Posting) error
	GetByID(ctx context.Context, id string) (*domain.Posting, error)
	// GetChain returns the posting and every posting chain-linked to it,
	// in either direction.
	GetChain(ctx context.Context, id string) ([]*domain.Posting, error)
	Update(ctx context.Context, id string, upd domain.PostingUpdate) error
	Complete(ctx context.Context, tx Transaction, id string, completedAt time.Time) error
	// SoftDeleteChain marks the posting and its chain deleted, skipping
	// service postings. Returns the number of rows affected.
	SoftDeleteChain(ctx context.Context, tx Transaction, id string, deletedAt time.Time) (int64, error)
	// Purge permanently removes soft-deleted postings and postings that
	// lost both account references.
	Purge(ctx context.Context) (int64, error)
	// DebitSum returns the sum of completed, non-deleted debit posting
	// amounts for the account as of the cutoff.
	DebitSum(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error)
	// CreditSum returns the sum of all non-deleted credit posting amounts
	// for the account as of the cutoff, pending included.
	CreditSum(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID string, q StatementQuery) ([]*domain.StatementRow, error)
}

// Transaction represents a store transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles store transaction lifecycle. WithinTx may
// re-run fn when the store aborts the transaction with a transient
// conflict, so fn must be safe to execute more than once. The context
// handed to fn bounds the transaction's lifetime and must be used for
// every statement issued inside it.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// SharedCache is an optional process-external cache (Redis) layered in
// front of the local rate cache so engine replicas share resolved rates.
type SharedCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// IdempotencyStore deduplicates replayed write requests at the HTTP
// boundary.
type IdempotencyStore interface {
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
