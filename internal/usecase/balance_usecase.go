package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
)

// BalanceService computes account balances from ledger postings.
//
// The balance of an account is the sum of its completed debit postings
// minus the sum of all its non-deleted credit postings, as of a cutoff.
// The asymmetry is deliberate: outgoing value is reserved the moment a
// credit posting is created, pending or not, while incoming value counts
// only once the debit posting completes.
type BalanceService struct {
	accountRepo AccountRepository
	assetRepo   AssetRepository
	postingRepo PostingRepository
	rates       *RateService
}

// NewBalanceService creates a BalanceService.
func NewBalanceService(
	accountRepo AccountRepository,
	assetRepo AssetRepository,
	postingRepo PostingRepository,
	rates *RateService,
) *BalanceService {
	return &BalanceService{
		accountRepo: accountRepo,
		assetRepo:   assetRepo,
		postingRepo: postingRepo,
		rates:       rates,
	}
}

// BalanceInput selects the balance to compute. A nil AsOf means now.
// Natural suppresses the passive sign flip and reports the raw
// debit-minus-credit value.
type BalanceInput struct {
	Account string
	AsOf    *time.Time
	Natural bool
}

// Balance returns the account balance rounded to the asset's precision.
func (s *BalanceService) Balance(ctx context.Context, input BalanceInput) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByCode(ctx, input.Account)
	if err != nil {
		return decimal.Zero, err
	}

	return s.balanceOf(ctx, account, input.AsOf, input.Natural)
}

func (s *BalanceService) balanceOf(ctx context.Context, account *domain.Account, asOf *time.Time, natural bool) (decimal.Decimal, error) {
	cutoff := time.Now().UTC()
	if asOf != nil {
		cutoff = asOf.UTC()
	}

	debit, err := s.postingRepo.DebitSum(ctx, account.ID, cutoff)
	if err != nil {
		return decimal.Zero, err
	}

	credit, err := s.postingRepo.CreditSum(ctx, account.ID, cutoff)
	if err != nil {
		return decimal.Zero, err
	}

	asset, err := s.assetRepo.GetByCode(ctx, account.Asset)
	if err != nil {
		return decimal.Zero, err
	}

	balance := debit.Sub(credit).Round(asset.Precision)
	if natural {
		return balance, nil
	}

	return account.DisplayBalance(balance), nil
}

// BalancePoint is one sample of a balance series.
type BalancePoint struct {
	At      time.Time
	Balance decimal.Decimal
}

// BalanceRange samples the account balance from start to end at the given
// step, endpoints included.
func (s *BalanceService) BalanceRange(ctx context.Context, accountCode string, start, end time.Time, step time.Duration) ([]BalancePoint, error) {
	if step <= 0 {
		step = 24 * time.Hour
	}

	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}

	account, err := s.accountRepo.GetByCode(ctx, accountCode)
	if err != nil {
		return nil, err
	}

	var points []BalancePoint
	for at := start; !at.After(end); at = at.Add(step) {
		cutoff := at
		balance, err := s.balanceOf(ctx, account, &cutoff, false)
		if err != nil {
			return nil, err
		}
		points = append(points, BalancePoint{At: at, Balance: balance})
	}

	return points, nil
}

// AccountBalance is one row of an asset-wide summary.
type AccountBalance struct {
	Code        string
	Type        domain.AccountType
	Asset       string
	Balance     decimal.Decimal
	BaseBalance decimal.Decimal
}

// Summary aggregates balances over a set of accounts and converts each to
// the base asset. Per-account rows carry the presented (passive-flipped)
// balance; the total sums natural contributions, since the flip is a
// per-account presentation concern.
type Summary struct {
	Accounts  []*AccountBalance
	BaseAsset string
	Total     decimal.Decimal
}

// AssetSummary computes a summary over the accounts matching the filter.
func (s *BalanceService) AssetSummary(ctx context.Context, filter AccountFilter, asOf *time.Time) (*Summary, error) {
	accounts, err := s.accountRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	base := s.rates.cfg.BaseAsset

	cutoff := time.Now().UTC()
	if asOf != nil {
		cutoff = asOf.UTC()
	}

	summary := &Summary{BaseAsset: base}
	for _, account := range accounts {
		natural, err := s.balanceOf(ctx, account, &cutoff, true)
		if err != nil {
			return nil, err
		}

		converted, err := s.rates.Convert(ctx, natural, account.Asset, base, cutoff)
		if err != nil {
			return nil, err
		}

		summary.Accounts = append(summary.Accounts, &AccountBalance{
			Code:        account.Code,
			Type:        account.Type,
			Asset:       account.Asset,
			Balance:     account.DisplayBalance(natural),
			BaseBalance: converted,
		})
		summary.Total = summary.Total.Add(converted)
	}

	return summary, nil
}
