package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// CreateAssetRequest represents a request to register an asset.
type CreateAssetRequest struct {
	Code      string `json:"code"`
	Precision int32  `json:"precision,omitempty"`
}

// UpdateAssetRequest represents a partial asset update.
type UpdateAssetRequest struct {
	Code      *string `json:"code,omitempty"`
	Precision *int32  `json:"precision,omitempty"`
}

// SetRateRequest represents a request to record an exchange rate.
type SetRateRequest struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Value decimal.Decimal `json:"value"`
	At    *time.Time      `json:"at,omitempty"`
}

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code         string           `json:"code"`
	Asset        string           `json:"asset"`
	Type         string           `json:"type"`
	Passive      *bool            `json:"passive,omitempty"`
	MaxOverdraft *decimal.Decimal `json:"max_overdraft,omitempty"`
	MaxBalance   *decimal.Decimal `json:"max_balance,omitempty"`
	Note         string           `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() (usecase.CreateAccountInput, error) {
	accountType := domain.AccountCurrent
	if r.Type != "" {
		t, err := domain.ParseAccountType(r.Type)
		if err != nil {
			return usecase.CreateAccountInput{}, err
		}
		accountType = t
	}

	return usecase.CreateAccountInput{
		Code:         r.Code,
		Asset:        r.Asset,
		Type:         accountType,
		Passive:      r.Passive,
		MaxOverdraft: r.MaxOverdraft,
		MaxBalance:   r.MaxBalance,
		Note:         r.Note,
	}, nil
}

// UpdateAccountRequest represents a partial account update.
type UpdateAccountRequest struct {
	Code         *string          `json:"code,omitempty"`
	Note         *string          `json:"note,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Passive      *bool            `json:"passive,omitempty"`
	MaxOverdraft *decimal.Decimal `json:"max_overdraft,omitempty"`
	MaxBalance   *decimal.Decimal `json:"max_balance,omitempty"`
}

// ToDomain converts to a domain account update.
func (r *UpdateAccountRequest) ToDomain() (domain.AccountUpdate, error) {
	upd := domain.AccountUpdate{
		Code:         r.Code,
		Note:         r.Note,
		Passive:      r.Passive,
		MaxOverdraft: r.MaxOverdraft,
		MaxBalance:   r.MaxBalance,
	}

	if r.Type != nil {
		t, err := domain.ParseAccountType(*r.Type)
		if err != nil {
			return domain.AccountUpdate{}, err
		}
		upd.Type = &t
	}

	return upd, nil
}

// CreatePostingRequest represents a single-account movement. Exactly one
// of amount and target must be set; a negative amount lowers the
// account's presented balance.
type CreatePostingRequest struct {
	Account        string           `json:"account"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Target         *decimal.Decimal `json:"target,omitempty"`
	Tag            string           `json:"tag,omitempty"`
	Note           string           `json:"note,omitempty"`
	Date           *time.Time       `json:"date,omitempty"`
	CompletionDate *time.Time       `json:"completion_date,omitempty"`
	Pending        bool             `json:"pending,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePostingRequest) ToUseCaseInput() usecase.CreateInput {
	return usecase.CreateInput{
		Account:        r.Account,
		Amount:         r.Amount,
		Target:         r.Target,
		Tag:            r.Tag,
		Note:           r.Note,
		Date:           r.Date,
		CompletionDate: r.CompletionDate,
		Pending:        r.Pending,
	}
}

// MoveRequest represents a movement between two accounts.
type MoveRequest struct {
	Debit          string           `json:"debit,omitempty"`
	Credit         string           `json:"credit,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	TargetDebit    *decimal.Decimal `json:"target_debit,omitempty"`
	TargetCredit   *decimal.Decimal `json:"target_credit,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	XDebit         bool             `json:"xdebit,omitempty"`
	Tag            string           `json:"tag,omitempty"`
	Note           string           `json:"note,omitempty"`
	Date           *time.Time       `json:"date,omitempty"`
	CompletionDate *time.Time       `json:"completion_date,omitempty"`
	Pending        bool             `json:"pending,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *MoveRequest) ToUseCaseInput() usecase.MoveInput {
	return usecase.MoveInput{
		Debit:          r.Debit,
		Credit:         r.Credit,
		Amount:         r.Amount,
		TargetDebit:    r.TargetDebit,
		TargetCredit:   r.TargetCredit,
		Rate:           r.Rate,
		XDebit:         r.XDebit,
		Tag:            r.Tag,
		Note:           r.Note,
		Date:           r.Date,
		CompletionDate: r.CompletionDate,
		Pending:        r.Pending,
	}
}

// CompletePostingsRequest marks pending postings as completed.
type CompletePostingsRequest struct {
	IDs            []string   `json:"ids"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// DeletePostingsRequest soft-deletes postings and their chains.
type DeletePostingsRequest struct {
	IDs []string `json:"ids"`
}

// CopyPostingsRequest duplicates postings with optional overrides.
type CopyPostingsRequest struct {
	IDs            []string         `json:"ids"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Tag            *string          `json:"tag,omitempty"`
	Note           *string          `json:"note,omitempty"`
	Date           *time.Time       `json:"date,omitempty"`
	CompletionDate *time.Time       `json:"completion_date,omitempty"`
	Pending        bool             `json:"pending,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CopyPostingsRequest) ToUseCaseInput() usecase.CopyInput {
	return usecase.CopyInput{
		IDs:            r.IDs,
		Amount:         r.Amount,
		Tag:            r.Tag,
		Note:           r.Note,
		Date:           r.Date,
		CompletionDate: r.CompletionDate,
		Pending:        r.Pending,
	}
}

// UpdatePostingRequest represents a partial posting update.
type UpdatePostingRequest struct {
	Tag            *string          `json:"tag,omitempty"`
	Note           *string          `json:"note,omitempty"`
	Date           *time.Time       `json:"date,omitempty"`
	CompletionDate *time.Time       `json:"completion_date,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
}

// ToDomain converts to a domain posting update.
func (r *UpdatePostingRequest) ToDomain() domain.PostingUpdate {
	return domain.PostingUpdate{
		Tag:         r.Tag,
		Note:        r.Note,
		CreatedAt:   r.Date,
		CompletedAt: r.CompletionDate,
		Amount:      r.Amount,
	}
}
