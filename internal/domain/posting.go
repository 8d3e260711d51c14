package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Posting is one ledger entry. Amount is always non-negative; direction is
// encoded by which account reference is populated, never by sign.
//
// A same-asset transfer sets both references on a single posting. A
// cross-asset movement is a pair of single-sided postings linked through
// ChainPostingID; the pair is created, soft-deleted and copied as a unit.
//
// Service postings are the two zero-amount rows written together with every
// account so aggregate queries always find at least one debit and one credit
// row; they never show up in statements and are never deleted.
type Posting struct {
	ID              string
	CreditAccountID *string
	DebitAccountID  *string
	Amount          decimal.Decimal
	Tag             string
	Note            string
	CreatedAt       time.Time
	CompletedAt     *time.Time
	ChainPostingID  *string
	DeletedAt       *time.Time
	Service         bool
}

// Validate checks structural posting invariants.
func (p *Posting) Validate() error {
	if p.CreditAccountID == nil && p.DebitAccountID == nil {
		return ErrNoAccountRef
	}

	if p.Amount.IsNegative() {
		return ErrInvalidAmount
	}

	if p.Amount.IsZero() && !p.Service {
		return ErrInvalidAmount
	}

	return nil
}

// Completed reports whether the posting has a completion timestamp.
func (p *Posting) Completed() bool {
	return p.CompletedAt != nil
}

// Deleted reports whether the posting is soft-deleted.
func (p *Posting) Deleted() bool {
	return p.DeletedAt != nil
}

// Chained reports whether the posting is one leg of a cross-asset pair.
func (p *Posting) Chained() bool {
	return p.ChainPostingID != nil
}

// PostingUpdate carries the mutable posting fields. Nil means unchanged.
// Dates and amount are honored only when full updates are enabled.
type PostingUpdate struct {
	Tag         *string
	Note        *string
	CreatedAt   *time.Time
	CompletedAt *time.Time
	Amount      *decimal.Decimal
}

// StatementRow is one line of an account statement. Amount is positive for
// debit postings and negative for credit postings of the account, before
// the passive presentation flip.
type StatementRow struct {
	ID           string
	Amount       decimal.Decimal
	Counterparty string
	Tag          string
	Note         string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// StatementSummary aggregates a statement into turnovers.
type StatementSummary struct {
	Credit    decimal.Decimal
	Debit     decimal.Decimal
	Net       decimal.Decimal
	Statement []*StatementRow
}
