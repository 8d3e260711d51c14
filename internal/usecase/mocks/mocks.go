package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// MockAssetRepository is a mock implementation of AssetRepository.
type MockAssetRepository struct {
	mu     sync.RWMutex
	assets map[string]*domain.Asset

	CreateFunc    func(ctx context.Context, asset *domain.Asset) error
	GetByCodeFunc func(ctx context.Context, code string) (*domain.Asset, error)
	ListFunc      func(ctx context.Context) ([]*domain.Asset, error)
	UpdateFunc    func(ctx context.Context, code string, newCode *string, precision *int32) error
	DeleteFunc    func(ctx context.Context, code string) error
}

func NewMockAssetRepository() *MockAssetRepository {
	return &MockAssetRepository{
		assets: make(map[string]*domain.Asset),
	}
}

func (m *MockAssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, asset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[asset.Code]; ok {
		return domain.ErrAlreadyExists
	}
	m.assets[asset.Code] = asset
	return nil
}

func (m *MockAssetRepository) GetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.assets[code]; ok {
		return a, nil
	}
	return nil, domain.ErrAssetNotFound
}

func (m *MockAssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var assets []*domain.Asset
	for _, a := range m.assets {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Code < assets[j].Code })
	return assets, nil
}

func (m *MockAssetRepository) Update(ctx context.Context, code string, newCode *string, precision *int32) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, code, newCode, precision)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[code]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if newCode != nil {
		if _, exists := m.assets[*newCode]; exists {
			return domain.ErrAlreadyExists
		}
		delete(m.assets, code)
		a.Code = *newCode
		m.assets[a.Code] = a
	}
	if precision != nil {
		a.Precision = *precision
	}
	return nil
}

func (m *MockAssetRepository) Delete(ctx context.Context, code string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[code]; !ok {
		return domain.ErrAssetNotFound
	}
	delete(m.assets, code)
	return nil
}

// MockRateRepository is a mock implementation of RateRepository.
type MockRateRepository struct {
	mu    sync.RWMutex
	rates []*domain.Rate

	SetFunc       func(ctx context.Context, rate *domain.Rate) error
	DeleteFunc    func(ctx context.Context, from, to string, at time.Time) error
	GetLatestFunc func(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
	ListAsOfFunc  func(ctx context.Context, asOf time.Time) ([]*domain.Rate, error)
	ListFunc      func(ctx context.Context, from, to string) ([]*domain.Rate, error)
}

func NewMockRateRepository() *MockRateRepository {
	return &MockRateRepository{}
}

func (m *MockRateRepository) Set(ctx context.Context, rate *domain.Rate) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, rate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, rate)
	return nil
}

func (m *MockRateRepository) Delete(ctx context.Context, from, to string, at time.Time) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, from, to, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rates {
		if r.AssetFrom == from && r.AssetTo == to && r.At.Equal(at) {
			m.rates = append(m.rates[:i], m.rates[i+1:]...)
			return nil
		}
	}
	return domain.ErrRateNotFound
}

func (m *MockRateRepository) GetLatest(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, from, to, asOf)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.Rate
	for _, r := range m.rates {
		if r.AssetFrom != from || r.AssetTo != to || r.At.After(asOf) {
			continue
		}
		if best == nil || r.At.After(best.At) {
			best = r
		}
	}
	if best == nil {
		return decimal.Zero, domain.ErrRateNotFound
	}
	return best.Value, nil
}

func (m *MockRateRepository) ListAsOf(ctx context.Context, asOf time.Time) ([]*domain.Rate, error) {
	if m.ListAsOfFunc != nil {
		return m.ListAsOfFunc(ctx, asOf)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := make(map[string]*domain.Rate)
	for _, r := range m.rates {
		if r.At.After(asOf) {
			continue
		}
		key := r.AssetFrom + "/" + r.AssetTo
		if cur, ok := latest[key]; !ok || r.At.After(cur.At) {
			latest[key] = r
		}
	}
	var rates []*domain.Rate
	for _, r := range latest {
		rates = append(rates, r)
	}
	return rates, nil
}

func (m *MockRateRepository) List(ctx context.Context, from, to string) ([]*domain.Rate, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, from, to)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rates []*domain.Rate
	for _, r := range m.rates {
		if r.AssetFrom == from && r.AssetTo == to {
			rates = append(rates, r)
		}
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].At.Before(rates[j].At) })
	return rates, nil
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu     sync.RWMutex
	byCode map[string]*domain.Account
	byID   map[string]*domain.Account

	CreateFunc    func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByCodeFunc func(ctx context.Context, code string) (*domain.Account, error)
	GetByIDFunc   func(ctx context.Context, id string) (*domain.Account, error)
	ListFunc      func(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, error)
	UpdateFunc    func(ctx context.Context, code string, upd domain.AccountUpdate) error
	DeleteFunc    func(ctx context.Context, tx usecase.Transaction, code string) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		byCode: make(map[string]*domain.Account),
		byID:   make(map[string]*domain.Account),
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byCode[account.Code]; ok {
		return domain.ErrAlreadyExists
	}
	m.byCode[account.Code] = account
	m.byID[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByCode(ctx context.Context, code string) (*domain.Account, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.byCode[code]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, a := range m.byCode {
		if filter.Asset != "" && a.Asset != filter.Asset {
			continue
		}
		if filter.Type != nil && a.Type != *filter.Type {
			continue
		}
		if filter.CodePrefix != "" && !strings.HasPrefix(a.Code, filter.CodePrefix) {
			continue
		}
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

func (m *MockAccountRepository) Update(ctx context.Context, code string, upd domain.AccountUpdate) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, code, upd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byCode[code]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if upd.Code != nil {
		if _, exists := m.byCode[*upd.Code]; exists {
			return domain.ErrAlreadyExists
		}
		delete(m.byCode, code)
		a.Code = *upd.Code
		m.byCode[a.Code] = a
	}
	if upd.Note != nil {
		a.Note = *upd.Note
	}
	if upd.Type != nil {
		a.Type = *upd.Type
	}
	if upd.Passive != nil {
		a.Passive = *upd.Passive
	}
	if upd.MaxOverdraft != nil {
		a.MaxOverdraft = upd.MaxOverdraft
	}
	if upd.MaxBalance != nil {
		a.MaxBalance = upd.MaxBalance
	}
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, code string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byCode[code]
	if !ok {
		return domain.ErrAccountNotFound
	}
	delete(m.byCode, code)
	delete(m.byID, a.ID)
	return nil
}

// MockPostingRepository is a mock implementation of PostingRepository
// with full in-memory ledger semantics: chain traversal, soft deletion,
// asymmetric debit/credit sums and purge behave like the real store.
type MockPostingRepository struct {
	mu       sync.RWMutex
	postings map[string]*domain.Posting

	CreateFunc func(ctx context.Context, tx usecase.Transaction, posting *domain.Posting) error
}

func NewMockPostingRepository() *MockPostingRepository {
	return &MockPostingRepository{
		postings: make(map[string]*domain.Posting),
	}
}

func (m *MockPostingRepository) Create(ctx context.Context, tx usecase.Transaction, posting *domain.Posting) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, posting)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.postings[posting.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.postings[posting.ID] = posting
	return nil
}

func (m *MockPostingRepository) GetByID(ctx context.Context, id string) (*domain.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.postings[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPostingNotFound
}

func (m *MockPostingRepository) GetChain(ctx context.Context, id string) ([]*domain.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chainLocked(id)
}

func (m *MockPostingRepository) chainLocked(id string) ([]*domain.Posting, error) {
	root, ok := m.postings[id]
	if !ok {
		return nil, domain.ErrPostingNotFound
	}
	member := map[string]bool{root.ID: true}
	chain := []*domain.Posting{root}
	for changed := true; changed; {
		changed = false
		for _, p := range m.postings {
			if member[p.ID] {
				continue
			}
			linked := p.ChainPostingID != nil && member[*p.ChainPostingID]
			for mid := range member {
				if ref := m.postings[mid].ChainPostingID; ref != nil && *ref == p.ID {
					linked = true
				}
			}
			if linked {
				member[p.ID] = true
				chain = append(chain, p)
				changed = true
			}
		}
	}
	return chain, nil
}

func (m *MockPostingRepository) Update(ctx context.Context, id string, upd domain.PostingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[id]
	if !ok {
		return domain.ErrPostingNotFound
	}
	if upd.Tag != nil {
		p.Tag = *upd.Tag
	}
	if upd.Note != nil {
		p.Note = *upd.Note
	}
	if upd.CreatedAt != nil {
		p.CreatedAt = *upd.CreatedAt
	}
	if upd.CompletedAt != nil {
		p.CompletedAt = upd.CompletedAt
	}
	if upd.Amount != nil {
		p.Amount = *upd.Amount
	}
	return nil
}

func (m *MockPostingRepository) Complete(ctx context.Context, tx usecase.Transaction, id string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[id]
	if !ok {
		return domain.ErrPostingNotFound
	}
	p.CompletedAt = &completedAt
	return nil
}

func (m *MockPostingRepository) SoftDeleteChain(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain, err := m.chainLocked(id)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, p := range chain {
		if p.Service || p.Deleted() {
			continue
		}
		at := deletedAt
		p.DeletedAt = &at
		n++
	}
	return n, nil
}

func (m *MockPostingRepository) Purge(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.postings {
		if p.Deleted() || (p.DebitAccountID == nil && p.CreditAccountID == nil) {
			delete(m.postings, id)
			n++
		}
	}
	return n, nil
}

func (m *MockPostingRepository) DebitSum(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, p := range m.postings {
		if p.DebitAccountID == nil || *p.DebitAccountID != accountID || p.Deleted() {
			continue
		}
		if p.CompletedAt == nil || p.CompletedAt.After(asOf) {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (m *MockPostingRepository) CreditSum(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, p := range m.postings {
		if p.CreditAccountID == nil || *p.CreditAccountID != accountID || p.Deleted() {
			continue
		}
		switch {
		case p.CompletedAt != nil && !p.CompletedAt.After(asOf):
			sum = sum.Add(p.Amount)
		case p.CompletedAt == nil && !p.CreatedAt.After(asOf):
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (m *MockPostingRepository) ListByAccount(ctx context.Context, accountID string, q usecase.StatementQuery) ([]*domain.StatementRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []*domain.StatementRow
	for _, p := range m.postings {
		if p.Service || p.Deleted() {
			continue
		}
		var amount decimal.Decimal
		switch {
		case p.DebitAccountID != nil && *p.DebitAccountID == accountID:
			amount = p.Amount
		case p.CreditAccountID != nil && *p.CreditAccountID == accountID:
			amount = p.Amount.Neg()
		default:
			continue
		}
		if !q.Pending && p.CompletedAt == nil {
			continue
		}
		at := p.CreatedAt
		if !q.Pending && p.CompletedAt != nil {
			at = *p.CompletedAt
		}
		if q.Start != nil && at.Before(*q.Start) {
			continue
		}
		if q.End != nil && at.After(*q.End) {
			continue
		}
		if q.Tag != "" && p.Tag != q.Tag {
			continue
		}
		rows = append(rows, &domain.StatementRow{
			ID:          p.ID,
			Amount:      amount,
			Tag:         p.Tag,
			Note:        p.Note,
			CreatedAt:   p.CreatedAt,
			CompletedAt: p.CompletedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc    func(ctx context.Context) (usecase.Transaction, error)
	WithinTxFunc func(ctx context.Context, fn func(ctx context.Context, tx usecase.Transaction) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.Transaction) error) error {
	if m.WithinTxFunc != nil {
		return m.WithinTxFunc(ctx, fn)
	}

	tx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (m *MockTransactionManager) begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockSharedCache is a mock implementation of SharedCache.
type MockSharedCache struct {
	mu   sync.RWMutex
	data map[string]string

	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key, value string, ttl time.Duration) error
}

func NewMockSharedCache() *MockSharedCache {
	return &MockSharedCache{
		data: make(map[string]string),
	}
}

func (m *MockSharedCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockSharedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
