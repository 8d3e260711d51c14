package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/infrastructure/metrics"
)

// ServiceTag marks the bookkeeping postings written when an account is
// created. They carry a zero amount and never participate in statements,
// deletion chains or balance sums beyond anchoring the account's history.
const ServiceTag = "service"

// AccountService manages the account registry.
type AccountService struct {
	accountRepo AccountRepository
	assetRepo   AssetRepository
	postingRepo PostingRepository
	txManager   TransactionManager
	idGen       IDGenerator
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(
	accountRepo AccountRepository,
	assetRepo AssetRepository,
	postingRepo PostingRepository,
	txManager TransactionManager,
	idGen IDGenerator,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		assetRepo:   assetRepo,
		postingRepo: postingRepo,
		txManager:   txManager,
		idGen:       idGen,
		metrics:     m,
		log:         log,
	}
}

// CreateAccountInput carries the parameters of account creation. A nil
// Passive defers to the account type's default.
type CreateAccountInput struct {
	Code         string
	Asset        string
	Type         domain.AccountType
	Passive      *bool
	MaxOverdraft *decimal.Decimal
	MaxBalance   *decimal.Decimal
	Note         string
}

// CreateAccount registers an account and anchors it with a pair of
// zero-amount service postings, all in one store transaction.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, domain.ErrAccountNotFound
	}

	asset := strings.ToUpper(input.Asset)
	if _, err := s.assetRepo.GetByCode(ctx, asset); err != nil {
		return nil, err
	}

	if !input.Type.Valid() {
		return nil, domain.ErrInvalidAccountType
	}

	passive := input.Type.PassiveByDefault()
	if input.Passive != nil {
		passive = *input.Passive
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           s.idGen.Generate(),
		Code:         code,
		Asset:        asset,
		Type:         input.Type,
		Passive:      passive,
		MaxOverdraft: input.MaxOverdraft,
		MaxBalance:   input.MaxBalance,
		Note:         input.Note,
		CreatedAt:    now,
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context, tx Transaction) error {
		if err := s.accountRepo.Create(ctx, tx, account); err != nil {
			return err
		}

		for _, p := range servicePostings(s.idGen, account.ID, now) {
			if err := s.postingRepo.Create(ctx, tx, p); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AccountCreated()
	s.log.Info().
		Str("account", code).
		Str("asset", asset).
		Str("type", input.Type.String()).
		Bool("passive", passive).
		Msg("account created")

	return account, nil
}

// servicePostings builds the opening pair anchoring a new account: one
// credit and one debit of zero, both completed immediately.
func servicePostings(idGen IDGenerator, accountID string, at time.Time) []*domain.Posting {
	completed := at
	return []*domain.Posting{
		{
			ID:              idGen.Generate(),
			CreditAccountID: &accountID,
			Amount:          decimal.Zero,
			Tag:             ServiceTag,
			CreatedAt:       at,
			CompletedAt:     &completed,
			Service:         true,
		},
		{
			ID:             idGen.Generate(),
			DebitAccountID: &accountID,
			Amount:         decimal.Zero,
			Tag:            ServiceTag,
			CreatedAt:      at,
			CompletedAt:    &completed,
			Service:        true,
		},
	}
}

// GetAccount returns the account by code.
func (s *AccountService) GetAccount(ctx context.Context, code string) (*domain.Account, error) {
	return s.accountRepo.GetByCode(ctx, strings.ToUpper(code))
}

// ListAccounts returns the accounts matching the filter.
func (s *AccountService) ListAccounts(ctx context.Context, filter AccountFilter) ([]*domain.Account, error) {
	filter.Asset = strings.ToUpper(filter.Asset)
	return s.accountRepo.List(ctx, filter)
}

// UpdateAccount applies a partial update to the account.
func (s *AccountService) UpdateAccount(ctx context.Context, code string, upd domain.AccountUpdate) error {
	code = strings.ToUpper(code)

	if upd.Code != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*upd.Code))
		if normalized == "" {
			return domain.ErrAccountNotFound
		}
		upd.Code = &normalized
	}

	if upd.Type != nil {
		if !upd.Type.Valid() {
			return domain.ErrInvalidAccountType
		}
	}

	if err := s.accountRepo.Update(ctx, code, upd); err != nil {
		return err
	}

	s.log.Info().Str("account", code).Msg("account updated")

	return nil
}

// DeleteAccount removes the account. Its postings lose the reference and
// become eligible for purge once the other side is gone too.
func (s *AccountService) DeleteAccount(ctx context.Context, code string) error {
	code = strings.ToUpper(code)

	err := s.txManager.WithinTx(ctx, func(ctx context.Context, tx Transaction) error {
		return s.accountRepo.Delete(ctx, tx, code)
	})
	if err != nil {
		return err
	}

	s.metrics.AccountDeleted()
	s.log.Warn().Str("account", code).Msg("account deleted")

	return nil
}

// Statement lists the account's postings matching the query, newest
// first. Service postings are excluded.
func (s *AccountService) Statement(ctx context.Context, code string, q StatementQuery) ([]*domain.StatementRow, error) {
	account, err := s.accountRepo.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, err
	}

	return s.postingRepo.ListByAccount(ctx, account.ID, q)
}

// StatementSummary returns the statement together with its credit, debit
// and net totals. Row amounts are signed from the account's point of
// view: debits positive, credits negative.
func (s *AccountService) StatementSummary(ctx context.Context, code string, q StatementQuery) (*domain.StatementSummary, error) {
	rows, err := s.Statement(ctx, code, q)
	if err != nil {
		return nil, err
	}

	summary := &domain.StatementSummary{Statement: rows}
	for _, row := range rows {
		if row.Amount.IsNegative() {
			summary.Credit = summary.Credit.Add(row.Amount.Neg())
		} else {
			summary.Debit = summary.Debit.Add(row.Amount)
		}
	}
	summary.Net = summary.Debit.Sub(summary.Credit)

	return summary, nil
}
