package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// AssetResponse represents an asset in API responses.
type AssetResponse struct {
	Code      string    `json:"code"`
	Precision int32     `json:"precision"`
	CreatedAt time.Time `json:"created_at"`
}

// AssetFromDomain converts a domain asset to a response.
func AssetFromDomain(a *domain.Asset) *AssetResponse {
	return &AssetResponse{
		Code:      a.Code,
		Precision: a.Precision,
		CreatedAt: a.CreatedAt,
	}
}

// AssetsFromDomain converts domain assets to responses.
func AssetsFromDomain(assets []*domain.Asset) []*AssetResponse {
	result := make([]*AssetResponse, len(assets))
	for i, a := range assets {
		result[i] = AssetFromDomain(a)
	}
	return result
}

// RateResponse represents one exchange-rate observation.
type RateResponse struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Value decimal.Decimal `json:"value"`
	At    time.Time       `json:"at"`
}

// RateFromDomain converts a domain rate to a response.
func RateFromDomain(r *domain.Rate) *RateResponse {
	return &RateResponse{
		From:  r.AssetFrom,
		To:    r.AssetTo,
		Value: r.Value,
		At:    r.At,
	}
}

// RatesFromDomain converts domain rates to responses.
func RatesFromDomain(rates []*domain.Rate) []*RateResponse {
	result := make([]*RateResponse, len(rates))
	for i, r := range rates {
		result[i] = RateFromDomain(r)
	}
	return result
}

// ResolvedRateResponse is the result of a rate resolution, possibly
// derived through the base asset.
type ResolvedRateResponse struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Value decimal.Decimal `json:"value"`
	AsOf  time.Time       `json:"as_of"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID           string           `json:"id"`
	Code         string           `json:"code"`
	Asset        string           `json:"asset"`
	Type         string           `json:"type"`
	Passive      bool             `json:"passive"`
	MaxOverdraft *decimal.Decimal `json:"max_overdraft,omitempty"`
	MaxBalance   *decimal.Decimal `json:"max_balance,omitempty"`
	Note         string           `json:"note,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:           a.ID,
		Code:         a.Code,
		Asset:        a.Asset,
		Type:         a.Type.String(),
		Passive:      a.Passive,
		MaxOverdraft: a.MaxOverdraft,
		MaxBalance:   a.MaxBalance,
		Note:         a.Note,
		CreatedAt:    a.CreatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// BalanceResponse represents an account balance at a point in time.
type BalanceResponse struct {
	Account string          `json:"account"`
	Balance decimal.Decimal `json:"balance"`
	AsOf    *time.Time      `json:"as_of,omitempty"`
	Natural bool            `json:"natural,omitempty"`
}

// BalancePointResponse is one sample of a balance series.
type BalancePointResponse struct {
	At      time.Time       `json:"at"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceRangeResponse represents a sampled balance series.
type BalanceRangeResponse struct {
	Account string                 `json:"account"`
	Points  []BalancePointResponse `json:"points"`
}

// BalanceRangeFromUseCase converts balance samples to a response.
func BalanceRangeFromUseCase(account string, points []usecase.BalancePoint) *BalanceRangeResponse {
	resp := &BalanceRangeResponse{
		Account: account,
		Points:  make([]BalancePointResponse, len(points)),
	}
	for i, p := range points {
		resp.Points[i] = BalancePointResponse{At: p.At, Balance: p.Balance}
	}
	return resp
}

// PostingResponse represents a posting in API responses.
type PostingResponse struct {
	ID             string          `json:"id"`
	CreditAccount  *string         `json:"credit_account_id,omitempty"`
	DebitAccount   *string         `json:"debit_account_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Tag            string          `json:"tag,omitempty"`
	Note           string          `json:"note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ChainPostingID *string         `json:"chain_posting_id,omitempty"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
	Service        bool            `json:"service,omitempty"`
}

// PostingFromDomain converts a domain posting to a response.
func PostingFromDomain(p *domain.Posting) *PostingResponse {
	return &PostingResponse{
		ID:             p.ID,
		CreditAccount:  p.CreditAccountID,
		DebitAccount:   p.DebitAccountID,
		Amount:         p.Amount,
		Tag:            p.Tag,
		Note:           p.Note,
		CreatedAt:      p.CreatedAt,
		CompletedAt:    p.CompletedAt,
		ChainPostingID: p.ChainPostingID,
		DeletedAt:      p.DeletedAt,
		Service:        p.Service,
	}
}

// PostingsFromDomain converts domain postings to responses.
func PostingsFromDomain(postings []*domain.Posting) []*PostingResponse {
	result := make([]*PostingResponse, len(postings))
	for i, p := range postings {
		result[i] = PostingFromDomain(p)
	}
	return result
}

// PostingIDsResponse carries the ids produced by a movement.
type PostingIDsResponse struct {
	IDs []string `json:"ids"`
}

// StatementRowResponse is one line of an account statement.
type StatementRowResponse struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty,omitempty"`
	Tag          string          `json:"tag,omitempty"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// StatementFromDomain converts statement rows to responses.
func StatementFromDomain(rows []*domain.StatementRow) []*StatementRowResponse {
	result := make([]*StatementRowResponse, len(rows))
	for i, r := range rows {
		result[i] = &StatementRowResponse{
			ID:           r.ID,
			Amount:       r.Amount,
			Counterparty: r.Counterparty,
			Tag:          r.Tag,
			Note:         r.Note,
			CreatedAt:    r.CreatedAt,
			CompletedAt:  r.CompletedAt,
		}
	}
	return result
}

// StatementSummaryResponse aggregates a statement into turnovers.
type StatementSummaryResponse struct {
	Credit    decimal.Decimal         `json:"credit"`
	Debit     decimal.Decimal         `json:"debit"`
	Net       decimal.Decimal         `json:"net"`
	Statement []*StatementRowResponse `json:"statement"`
}

// StatementSummaryFromDomain converts a statement summary to a response.
func StatementSummaryFromDomain(s *domain.StatementSummary) *StatementSummaryResponse {
	return &StatementSummaryResponse{
		Credit:    s.Credit,
		Debit:     s.Debit,
		Net:       s.Net,
		Statement: StatementFromDomain(s.Statement),
	}
}

// AccountBalanceResponse is one row of an asset summary.
type AccountBalanceResponse struct {
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Asset       string          `json:"asset"`
	Balance     decimal.Decimal `json:"balance"`
	BaseBalance decimal.Decimal `json:"base_balance"`
}

// SummaryResponse aggregates balances converted to the base asset.
type SummaryResponse struct {
	Accounts  []*AccountBalanceResponse `json:"accounts"`
	BaseAsset string                    `json:"base_asset"`
	Total     decimal.Decimal           `json:"total"`
}

// SummaryFromUseCase converts an asset summary to a response.
func SummaryFromUseCase(s *usecase.Summary) *SummaryResponse {
	resp := &SummaryResponse{
		Accounts:  make([]*AccountBalanceResponse, len(s.Accounts)),
		BaseAsset: s.BaseAsset,
		Total:     s.Total,
	}
	for i, a := range s.Accounts {
		resp.Accounts[i] = &AccountBalanceResponse{
			Code:        a.Code,
			Type:        a.Type.String(),
			Asset:       a.Asset,
			Balance:     a.Balance,
			BaseBalance: a.BaseBalance,
		}
	}
	return resp
}

// PurgeResponse reports how many rows a purge removed.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

// DeletedResponse reports how many postings a delete touched.
type DeletedResponse struct {
	Deleted []string `json:"deleted"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
