package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// Resource errors
	ErrAssetNotFound   = errors.New("asset not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrPostingNotFound = errors.New("posting not found")
	ErrRateNotFound    = errors.New("rate not found")
	ErrAlreadyExists   = errors.New("resource already exists")

	// Argument errors
	ErrSameAccount        = errors.New("debit and credit account can not be the same")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrNoAccountRef       = errors.New("posting references no account")
	ErrAmountAndTarget    = errors.New("amount and target can not be specified together")
	ErrNoAmountOrTarget   = errors.New("specify amount or target")
	ErrConflictingTargets = errors.New("target should be specified either for debit or for credit")
	ErrTargetWithoutSide  = errors.New("target specified for a side without an account")
	ErrInvalidAssetPair   = errors.New("invalid asset pair")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrInvalidRateValue   = errors.New("rate value must be positive")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrChainAmountCopy    = errors.New("amount override is ambiguous for a chained posting")
	ErrServicePosting     = errors.New("service postings can not be modified")
	ErrUpdateRestricted   = errors.New("field update not permitted")
)

// OverdraftError rejects a credit leg that would push the account below
// its maximum overdraft.
type OverdraftError struct {
	Account string
	Amount  decimal.Decimal
}

func (e *OverdraftError) Error() string {
	return fmt.Sprintf("account %s: overdraft limit reached (amount %s)", e.Account, e.Amount)
}

// OverlimitError rejects a debit leg that would push the account above
// its maximum balance.
type OverlimitError struct {
	Account string
	Amount  decimal.Decimal
}

func (e *OverlimitError) Error() string {
	return fmt.Sprintf("account %s: balance limit reached (amount %s)", e.Account, e.Amount)
}

// RateNotFoundError identifies an unresolvable asset pair.
type RateNotFoundError struct {
	From string
	To   string
	At   time.Time
	Base string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no rate for %s/%s as of %s (base asset %s)",
		e.From, e.To, e.At.Format(time.RFC3339), e.Base)
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }

// Stable error codes for boundary layers. The numbering follows the
// JSON-RPC application range used by the wire protocol.
const (
	CodeNotFound      = -32001
	CodeRateNotFound  = -32002
	CodeOverdraft     = -32003
	CodeOverlimit     = -32004
	CodeAlreadyExists = -32005
	CodeInvalidParams = -32602
	CodeInternal      = -32603
)

// ErrorCode maps an engine error to its stable numeric code.
func ErrorCode(err error) int {
	var overdraft *OverdraftError
	var overlimit *OverlimitError

	switch {
	case errors.Is(err, ErrRateNotFound):
		return CodeRateNotFound
	case errors.Is(err, ErrAssetNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrPostingNotFound):
		return CodeNotFound
	case errors.As(err, &overdraft):
		return CodeOverdraft
	case errors.As(err, &overlimit):
		return CodeOverlimit
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNoAccountRef),
		errors.Is(err, ErrAmountAndTarget),
		errors.Is(err, ErrNoAmountOrTarget),
		errors.Is(err, ErrConflictingTargets),
		errors.Is(err, ErrTargetWithoutSide),
		errors.Is(err, ErrInvalidAssetPair),
		errors.Is(err, ErrInvalidDateRange),
		errors.Is(err, ErrInvalidRateValue),
		errors.Is(err, ErrInvalidAccountType),
		errors.Is(err, ErrChainAmountCopy),
		errors.Is(err, ErrServicePosting),
		errors.Is(err, ErrUpdateRestricted):
		return CodeInvalidParams
	default:
		return CodeInternal
	}
}
