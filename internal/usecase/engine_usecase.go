package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/infrastructure/metrics"
	"github.com/fxledger/fxledger/internal/lockmgr"
)

// EngineConfig controls transaction engine behavior.
type EngineConfig struct {
	// KeepIntegrity enables account locking and overdraft/overlimit
	// enforcement. Disabling it turns the engine into a raw recorder,
	// useful for bulk imports only.
	KeepIntegrity bool
	// FullTransactionUpdate permits updating posting dates and amounts,
	// not just tag and note.
	FullTransactionUpdate bool
}

// Engine executes ledger movements.
//
// All balance-affecting reads and writes for an account happen inside
// that account's lock holding period, so concurrent movers cannot race
// an overdraft or overlimit check. Multi-account operations acquire
// locks in sorted code order regardless of the caller's debit/credit
// order, which rules out lock-order inversion between opposite-direction
// moves over the same pair.
type Engine struct {
	accountRepo AccountRepository
	assetRepo   AssetRepository
	postingRepo PostingRepository
	txManager   TransactionManager
	idGen       IDGenerator
	locker      lockmgr.Locker
	rates       *RateService
	balances    *BalanceService
	cfg         EngineConfig
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(
	accountRepo AccountRepository,
	assetRepo AssetRepository,
	postingRepo PostingRepository,
	txManager TransactionManager,
	idGen IDGenerator,
	locker lockmgr.Locker,
	rates *RateService,
	balances *BalanceService,
	cfg EngineConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		accountRepo: accountRepo,
		assetRepo:   assetRepo,
		postingRepo: postingRepo,
		txManager:   txManager,
		idGen:       idGen,
		locker:      locker,
		rates:       rates,
		balances:    balances,
		cfg:         cfg,
		metrics:     m,
		log:         log,
	}
}

// lockAccounts claims the accounts' locks in sorted code order when
// integrity enforcement is on. The returned release function is safe on
// every exit path and must be deferred by the caller.
func (e *Engine) lockAccounts(ctx context.Context, leases map[string]*lockmgr.Lease, codes ...string) (map[string]*lockmgr.Lease, func(), error) {
	if !e.cfg.KeepIntegrity {
		return nil, func() {}, nil
	}

	start := time.Now()
	granted, release, err := lockmgr.AcquireMany(ctx, e.locker, leases, codes...)
	if err != nil {
		return nil, nil, err
	}
	e.metrics.LockWait(time.Since(start))

	return granted, release, nil
}

// CreateInput parameterizes the single-account convenience operation.
// Exactly one of Amount and Target must be set; Target is a desired
// presented balance resolved into a movement against the current one.
type CreateInput struct {
	Account        string
	Amount         *decimal.Decimal
	Target         *decimal.Decimal
	Tag            string
	Note           string
	Date           *time.Time
	CompletionDate *time.Time
	Pending        bool
}

// Create moves value into or out of a single account. A positive
// effective amount raises the account's presented balance, a negative
// one lowers it; for passive accounts that means the debit/credit role
// is inverted relative to active accounts. Resolving to zero is a no-op.
func (e *Engine) Create(ctx context.Context, input CreateInput) ([]string, error) {
	if input.Amount != nil && input.Target != nil {
		return nil, domain.ErrAmountAndTarget
	}
	if input.Amount == nil && input.Target == nil {
		return nil, domain.ErrNoAmountOrTarget
	}

	account, err := e.accountRepo.GetByCode(ctx, strings.ToUpper(input.Account))
	if err != nil {
		return nil, err
	}

	leases, release, err := e.lockAccounts(ctx, nil, account.Code)
	if err != nil {
		return nil, err
	}
	defer release()

	var amount decimal.Decimal
	if input.Target != nil {
		balance, err := e.balances.balanceOf(ctx, account, input.Date, false)
		if err != nil {
			return nil, err
		}
		amount = input.Target.Sub(balance)
	} else {
		amount = *input.Amount
	}

	// The caller speaks in presented-balance terms; passive accounts
	// store the inverted sign.
	if account.Passive {
		amount = amount.Neg()
	}

	if amount.IsZero() {
		return nil, nil
	}

	move := MoveInput{
		Tag:            input.Tag,
		Note:           input.Note,
		Date:           input.Date,
		CompletionDate: input.CompletionDate,
		Pending:        input.Pending,
		Leases:         leases,
	}
	if amount.IsNegative() {
		neg := amount.Neg()
		move.Credit = account.Code
		move.Amount = &neg
	} else {
		move.Debit = account.Code
		move.Amount = &amount
	}

	return e.Move(ctx, move)
}

// MoveInput parameterizes a movement. Exactly one of Amount, TargetDebit
// and TargetCredit must be set. XDebit selects which leg of a cross-asset
// move the amount denominates. Leases threads already-held locks in for
// reentrant acquisition.
type MoveInput struct {
	Debit          string
	Credit         string
	Amount         *decimal.Decimal
	TargetDebit    *decimal.Decimal
	TargetCredit   *decimal.Decimal
	Rate           *decimal.Decimal
	XDebit         bool
	Tag            string
	Note           string
	Date           *time.Time
	CompletionDate *time.Time
	Pending        bool
	Leases         map[string]*lockmgr.Lease
}

// Move records a movement between up to two accounts and returns the ids
// of the postings written: one for a same-asset or single-sided move, a
// credit-leg/debit-leg pair for a cross-asset move.
func (e *Engine) Move(ctx context.Context, input MoveInput) ([]string, error) {
	start := time.Now()

	dtCode := strings.ToUpper(strings.TrimSpace(input.Debit))
	ctCode := strings.ToUpper(strings.TrimSpace(input.Credit))

	if err := validateMoveInput(&input, dtCode, ctCode); err != nil {
		e.metrics.MoveRejected("invalid_params")
		return nil, err
	}

	_, release, err := e.lockAccounts(ctx, input.Leases, dtCode, ctCode)
	if err != nil {
		return nil, err
	}
	defer release()

	var dt, ct *domain.Account
	if dtCode != "" {
		if dt, err = e.accountRepo.GetByCode(ctx, dtCode); err != nil {
			return nil, err
		}
	}
	if ctCode != "" {
		if ct, err = e.accountRepo.GetByCode(ctx, ctCode); err != nil {
			return nil, err
		}
	}

	// Targets are expressed in presented-balance terms and resolved
	// before any role swap.
	amount, xdt, err := e.resolveAmount(ctx, &input, dt, ct)
	if err != nil {
		e.metrics.MoveRejected("invalid_params")
		return nil, err
	}
	if amount.IsZero() {
		return nil, nil
	}

	// When both legs are passive the presented signs invert on both
	// sides, so the natural debit/credit roles swap to keep "value flows
	// to the debit side" true in presented terms.
	if dt != nil && ct != nil && dt.Passive && ct.Passive {
		dt, ct = ct, dt
		xdt = !xdt
	}

	createdAt := time.Now().UTC()
	if input.Date != nil {
		createdAt = input.Date.UTC()
	}
	var completedAt *time.Time
	if !input.Pending {
		c := createdAt
		if input.CompletionDate != nil {
			c = input.CompletionDate.UTC()
		}
		completedAt = &c
	}

	var ids []string
	if dt == nil || ct == nil || dt.Asset == ct.Asset {
		ids, err = e.moveSameAsset(ctx, dt, ct, amount, input.Tag, input.Note, createdAt, completedAt)
	} else {
		ids, err = e.moveCrossAsset(ctx, dt, ct, amount, xdt, input.Rate, input.Tag, input.Note, createdAt, completedAt)
	}
	if err != nil {
		return nil, err
	}

	e.metrics.MoveObserved(time.Since(start))

	return ids, nil
}

func validateMoveInput(input *MoveInput, dtCode, ctCode string) error {
	if dtCode == "" && ctCode == "" {
		return domain.ErrNoAccountRef
	}
	if dtCode != "" && dtCode == ctCode {
		return domain.ErrSameAccount
	}

	hasAmount := input.Amount != nil
	hasTargetDt := input.TargetDebit != nil
	hasTargetCt := input.TargetCredit != nil

	switch {
	case hasAmount && (hasTargetDt || hasTargetCt):
		return domain.ErrAmountAndTarget
	case hasTargetDt && hasTargetCt:
		return domain.ErrConflictingTargets
	case !hasAmount && !hasTargetDt && !hasTargetCt:
		return domain.ErrNoAmountOrTarget
	case hasTargetDt && dtCode == "":
		return domain.ErrTargetWithoutSide
	case hasTargetCt && ctCode == "":
		return domain.ErrTargetWithoutSide
	case hasAmount && !input.Amount.IsPositive():
		return domain.ErrInvalidAmount
	}

	return nil
}

// resolveAmount turns a direct amount or a target balance into the
// movement amount and the leg it denominates. A target names the desired
// presented balance of its side; the difference to the current one gives
// the amount, with the sign convention depending on which sides are
// passive. A negative resolution is rejected, a zero one is a no-op.
func (e *Engine) resolveAmount(ctx context.Context, input *MoveInput, dt, ct *domain.Account) (decimal.Decimal, bool, error) {
	if input.Amount != nil {
		return *input.Amount, input.XDebit, nil
	}

	bothPassive := dt != nil && ct != nil && dt.Passive && ct.Passive

	var amount decimal.Decimal
	var xdt bool
	if input.TargetDebit != nil {
		balance, err := e.balances.balanceOf(ctx, dt, input.Date, false)
		if err != nil {
			return decimal.Zero, false, err
		}
		if !dt.Passive || bothPassive {
			amount = input.TargetDebit.Sub(balance)
		} else {
			amount = balance.Sub(*input.TargetDebit)
		}
		xdt = true
	} else {
		balance, err := e.balances.balanceOf(ctx, ct, input.Date, false)
		if err != nil {
			return decimal.Zero, false, err
		}
		if !ct.Passive || bothPassive {
			amount = balance.Sub(*input.TargetCredit)
		} else {
			amount = input.TargetCredit.Sub(balance)
		}
		xdt = false
	}

	if amount.IsNegative() {
		return decimal.Zero, false, domain.ErrInvalidAmount
	}

	return amount, xdt, nil
}

// checkLimits enforces overdraft on the credit side and overlimit on the
// debit side against natural balances read under the held locks.
func (e *Engine) checkLimits(ctx context.Context, dt, ct *domain.Account, dtAmount, ctAmount decimal.Decimal) error {
	if !e.cfg.KeepIntegrity {
		return nil
	}

	if ct != nil {
		balance, err := e.balances.balanceOf(ctx, ct, nil, true)
		if err != nil {
			return err
		}
		if err := ct.CheckOverdraft(balance, ctAmount); err != nil {
			e.metrics.MoveRejected("overdraft")
			return err
		}
	}

	if dt != nil {
		balance, err := e.balances.balanceOf(ctx, dt, nil, true)
		if err != nil {
			return err
		}
		if err := dt.CheckOverlimit(balance, dtAmount); err != nil {
			e.metrics.MoveRejected("overlimit")
			return err
		}
	}

	return nil
}

func (e *Engine) moveSameAsset(ctx context.Context, dt, ct *domain.Account, amount decimal.Decimal, tag, note string, createdAt time.Time, completedAt *time.Time) ([]string, error) {
	if err := e.checkLimits(ctx, dt, ct, amount, amount); err != nil {
		return nil, err
	}

	posting := &domain.Posting{
		ID:          e.idGen.Generate(),
		Amount:      amount,
		Tag:         tag,
		Note:        note,
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
	}
	if dt != nil {
		posting.DebitAccountID = &dt.ID
	}
	if ct != nil {
		posting.CreditAccountID = &ct.ID
	}

	if err := e.writePostings(ctx, posting); err != nil {
		return nil, err
	}

	e.metrics.PostingCreated()
	e.log.Info().
		Str("posting", posting.ID).
		Str("amount", amount.String()).
		Msg("posting created")

	return []string{posting.ID}, nil
}

// moveCrossAsset performs a lazy exchange: two chained single-reference
// postings whose amounts differ by the exchange rate but which are
// always written, deleted and copied as a unit. The credit leg is
// written first; the debit leg carries the chain reference.
func (e *Engine) moveCrossAsset(ctx context.Context, dt, ct *domain.Account, amount decimal.Decimal, xdt bool, explicitRate *decimal.Decimal, tag, note string, createdAt time.Time, completedAt *time.Time) ([]string, error) {
	rate := decimal.Zero
	if explicitRate != nil {
		if !explicitRate.IsPositive() {
			return nil, domain.ErrInvalidRateValue
		}
		rate = *explicitRate
	} else {
		var err error
		rate, err = e.rates.Rate(ctx, ct.Asset, dt.Asset, createdAt)
		if err != nil {
			e.metrics.MoveRejected("rate_not_found")
			return nil, err
		}
	}

	var dtAmount, ctAmount decimal.Decimal
	if xdt {
		ctAsset, err := e.assetRepo.GetByCode(ctx, ct.Asset)
		if err != nil {
			return nil, err
		}
		dtAmount = amount
		ctAmount = amount.DivRound(rate, ctAsset.Precision)
	} else {
		dtAsset, err := e.assetRepo.GetByCode(ctx, dt.Asset)
		if err != nil {
			return nil, err
		}
		ctAmount = amount
		dtAmount = amount.Mul(rate).Round(dtAsset.Precision)
	}

	if err := e.checkLimits(ctx, dt, ct, dtAmount, ctAmount); err != nil {
		return nil, err
	}

	creditLeg := &domain.Posting{
		ID:              e.idGen.Generate(),
		CreditAccountID: &ct.ID,
		Amount:          ctAmount,
		Tag:             tag,
		Note:            note,
		CreatedAt:       createdAt,
		CompletedAt:     completedAt,
	}
	debitLeg := &domain.Posting{
		ID:             e.idGen.Generate(),
		DebitAccountID: &dt.ID,
		Amount:         dtAmount,
		Tag:            tag,
		Note:           note,
		CreatedAt:      createdAt,
		CompletedAt:    completedAt,
		ChainPostingID: &creditLeg.ID,
	}

	if err := e.writePostings(ctx, creditLeg, debitLeg); err != nil {
		return nil, err
	}

	e.metrics.PostingCreated()
	e.metrics.PostingCreated()
	e.log.Info().
		Str("credit_leg", creditLeg.ID).
		Str("debit_leg", debitLeg.ID).
		Str("rate", rate.String()).
		Msg("cross-asset pair created")

	return []string{creditLeg.ID, debitLeg.ID}, nil
}

// writePostings persists the postings in one store transaction.
func (e *Engine) writePostings(ctx context.Context, postings ...*domain.Posting) error {
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	return e.txManager.WithinTx(ctx, func(ctx context.Context, tx Transaction) error {
		for _, p := range postings {
			if err := e.postingRepo.Create(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete stamps the postings completed. Overlimit is re-validated at
// completion time under the debit account's lock, since debit postings
// only count toward the balance once completed. Completing an already
// completed posting restamps the date without any balance effect.
func (e *Engine) Complete(ctx context.Context, ids []string, at *time.Time) error {
	completedAt := time.Now().UTC()
	if at != nil {
		completedAt = at.UTC()
	}

	for _, id := range ids {
		if err := e.completeOne(ctx, id, completedAt); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) completeOne(ctx context.Context, id string, completedAt time.Time) error {
	posting, err := e.postingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var dt *domain.Account
	if posting.DebitAccountID != nil {
		if dt, err = e.accountRepo.GetByID(ctx, *posting.DebitAccountID); err != nil {
			return err
		}
	}

	var codes []string
	if dt != nil {
		codes = append(codes, dt.Code)
	}
	_, release, err := e.lockAccounts(ctx, nil, codes...)
	if err != nil {
		return err
	}
	defer release()

	if dt != nil && !posting.Completed() && e.cfg.KeepIntegrity {
		balance, err := e.balances.balanceOf(ctx, dt, nil, true)
		if err != nil {
			return err
		}
		if err := dt.CheckOverlimit(balance, posting.Amount); err != nil {
			e.metrics.MoveRejected("overlimit")
			return err
		}
	}

	err = e.txManager.WithinTx(ctx, func(ctx context.Context, tx Transaction) error {
		return e.postingRepo.Complete(ctx, tx, id, completedAt)
	})
	if err != nil {
		return err
	}

	e.metrics.PostingCompleted()

	return nil
}

// Delete soft-deletes the postings together with every posting chained
// to them in either direction, so a cross-asset pair always goes as a
// unit. Service postings are never deleted.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := e.deleteOne(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deleteOne(ctx context.Context, id string) error {
	posting, err := e.postingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if posting.Service {
		return domain.ErrServicePosting
	}

	chain, err := e.postingRepo.GetChain(ctx, id)
	if err != nil {
		return err
	}

	codes, err := e.chainAccountCodes(ctx, chain)
	if err != nil {
		return err
	}

	_, release, err := e.lockAccounts(ctx, nil, codes...)
	if err != nil {
		return err
	}
	defer release()

	var deleted int64
	err = e.txManager.WithinTx(ctx, func(ctx context.Context, tx Transaction) error {
		var txErr error
		deleted, txErr = e.postingRepo.SoftDeleteChain(ctx, tx, id, time.Now().UTC())
		return txErr
	})
	if err != nil {
		return err
	}

	e.metrics.PostingDeleted(deleted)
	e.log.Info().Str("posting", id).Int64("rows", deleted).Msg("posting chain deleted")

	return nil
}

func (e *Engine) chainAccountCodes(ctx context.Context, chain []*domain.Posting) ([]string, error) {
	seen := map[string]bool{}
	var codes []string
	for _, p := range chain {
		for _, ref := range []*string{p.DebitAccountID, p.CreditAccountID} {
			if ref == nil || seen[*ref] {
				continue
			}
			seen[*ref] = true
			account, err := e.accountRepo.GetByID(ctx, *ref)
			if err != nil {
				return nil, err
			}
			codes = append(codes, account.Code)
		}
	}
	return codes, nil
}

// CopyInput parameterizes posting duplication. Pointer fields default to
// the source's values; Amount may only be set when the source is not
// part of a multi-leg chain.
type CopyInput struct {
	IDs            []string
	Amount         *decimal.Decimal
	Tag            *string
	Note           *string
	Date           *time.Time
	CompletionDate *time.Time
	Pending        bool
}

// Copy duplicates each posting, or its whole chain, with fresh ids and
// dates. Limit checks apply to the copies as to any new movement.
func (e *Engine) Copy(ctx context.Context, input CopyInput) ([]string, error) {
	var ids []string
	for _, id := range input.IDs {
		copied, err := e.copyOne(ctx, id, input)
		if err != nil {
			return nil, err
		}
		ids = append(ids, copied...)
	}
	return ids, nil
}

func (e *Engine) copyOne(ctx context.Context, id string, input CopyInput) ([]string, error) {
	chain, err := e.postingRepo.GetChain(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, domain.ErrPostingNotFound
	}

	if input.Amount != nil {
		if len(chain) > 1 {
			return nil, domain.ErrChainAmountCopy
		}
		if !input.Amount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
	}

	for _, p := range chain {
		if p.Service {
			return nil, domain.ErrServicePosting
		}
	}

	codes, err := e.chainAccountCodes(ctx, chain)
	if err != nil {
		return nil, err
	}

	_, release, err := e.lockAccounts(ctx, nil, codes...)
	if err != nil {
		return nil, err
	}
	defer release()

	createdAt := time.Now().UTC()
	if input.Date != nil {
		createdAt = input.Date.UTC()
	}
	var completedAt *time.Time
	if !input.Pending {
		c := createdAt
		if input.CompletionDate != nil {
			c = input.CompletionDate.UTC()
		}
		completedAt = &c
	}

	// Chain heads first so copied chain references always point at an
	// already-assigned id.
	ordered := make([]*domain.Posting, 0, len(chain))
	for _, p := range chain {
		if !p.Chained() {
			ordered = append(ordered, p)
		}
	}
	for _, p := range chain {
		if p.Chained() {
			ordered = append(ordered, p)
		}
	}

	newIDs := make(map[string]string, len(ordered))
	copies := make([]*domain.Posting, 0, len(ordered))
	for _, src := range ordered {
		amount := src.Amount
		if input.Amount != nil {
			amount = *input.Amount
		}
		tag := src.Tag
		if input.Tag != nil {
			tag = *input.Tag
		}
		note := src.Note
		if input.Note != nil {
			note = *input.Note
		}

		dup := &domain.Posting{
			ID:              e.idGen.Generate(),
			CreditAccountID: src.CreditAccountID,
			DebitAccountID:  src.DebitAccountID,
			Amount:          amount,
			Tag:             tag,
			Note:            note,
			CreatedAt:       createdAt,
			CompletedAt:     completedAt,
		}
		if src.ChainPostingID != nil {
			if mapped, ok := newIDs[*src.ChainPostingID]; ok {
				dup.ChainPostingID = &mapped
			}
		}
		newIDs[src.ID] = dup.ID

		dt, ct, err := e.postingAccounts(ctx, dup)
		if err != nil {
			return nil, err
		}
		if err := e.checkLimits(ctx, dt, ct, dup.Amount, dup.Amount); err != nil {
			return nil, err
		}

		copies = append(copies, dup)
	}

	if err := e.writePostings(ctx, copies...); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(copies))
	for _, p := range copies {
		ids = append(ids, p.ID)
		e.metrics.PostingCopied()
	}

	return ids, nil
}

func (e *Engine) postingAccounts(ctx context.Context, p *domain.Posting) (dt, ct *domain.Account, err error) {
	if p.DebitAccountID != nil {
		if dt, err = e.accountRepo.GetByID(ctx, *p.DebitAccountID); err != nil {
			return nil, nil, err
		}
	}
	if p.CreditAccountID != nil {
		if ct, err = e.accountRepo.GetByID(ctx, *p.CreditAccountID); err != nil {
			return nil, nil, err
		}
	}
	return dt, ct, nil
}

// Update applies a partial update to a posting. Tag and note are always
// updatable; dates and amount require the full-update configuration, and
// an amount can only replace a positive one.
func (e *Engine) Update(ctx context.Context, id string, upd domain.PostingUpdate) error {
	posting, err := e.postingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if posting.Service {
		return domain.ErrServicePosting
	}

	restricted := upd.CreatedAt != nil || upd.CompletedAt != nil || upd.Amount != nil
	if restricted && !e.cfg.FullTransactionUpdate {
		return domain.ErrUpdateRestricted
	}

	if upd.Amount != nil {
		if !posting.Amount.IsPositive() {
			return domain.ErrUpdateRestricted
		}
		if !upd.Amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
	}

	return e.postingRepo.Update(ctx, id, upd)
}

// GetPosting returns a posting by id.
func (e *Engine) GetPosting(ctx context.Context, id string) (*domain.Posting, error) {
	return e.postingRepo.GetByID(ctx, id)
}

// Purge permanently removes soft-deleted postings and postings that lost
// both account references. Returns the number of rows removed.
func (e *Engine) Purge(ctx context.Context) (int64, error) {
	n, err := e.postingRepo.Purge(ctx)
	if err != nil {
		return 0, err
	}

	e.metrics.PostingPurged(n)
	e.log.Info().Int64("rows", n).Msg("purged postings")

	return n, nil
}
