package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, code string) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, error)
	UpdateAccount(ctx context.Context, code string, upd domain.AccountUpdate) error
	DeleteAccount(ctx context.Context, code string) error
	Statement(ctx context.Context, code string, q usecase.StatementQuery) ([]*domain.StatementRow, error)
	StatementSummary(ctx context.Context, code string, q usecase.StatementQuery) (*domain.StatementSummary, error)
}

// BalanceService defines the balance reads needed by AccountHandler.
type BalanceService interface {
	Balance(ctx context.Context, input usecase.BalanceInput) (decimal.Decimal, error)
	BalanceRange(ctx context.Context, accountCode string, start, end time.Time, step time.Duration) ([]usecase.BalancePoint, error)
	AssetSummary(ctx context.Context, filter usecase.AccountFilter, asOf *time.Time) (*usecase.Summary, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	balanceUC BalanceService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, balanceUC BalanceService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, balanceUC: balanceUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account type", err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by code.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	account, err := h.accountUC.GetAccount(r.Context(), code)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts, optionally filtered by asset and code prefix.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := accountFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err)
		return
	}

	accounts, err := h.accountUC.ListAccounts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// Update applies a partial account update.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req dto.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	upd, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account type", err)
		return
	}

	if err := h.accountUC.UpdateAccount(r.Context(), code, upd); err != nil {
		writeDomainError(w, "failed to update account", err)
		return
	}

	if upd.Code != nil {
		code = *upd.Code
	}

	account, err := h.accountUC.GetAccount(r.Context(), code)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Delete removes an account. Its postings survive with the reference
// cleared and become eligible for purge.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.accountUC.DeleteAccount(r.Context(), code); err != nil {
		writeDomainError(w, "failed to delete account", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Balance returns the account balance, as of now or the given date.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	asOf, err := parseTimeQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err)
		return
	}
	natural := parseBoolQuery(r, "natural")

	balance, err := h.balanceUC.Balance(r.Context(), usecase.BalanceInput{
		Account: code,
		AsOf:    asOf,
		Natural: natural,
	})
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		Account: code,
		Balance: balance,
		AsOf:    asOf,
		Natural: natural,
	})
}

// BalanceRange samples the account balance over a date range.
func (h *AccountHandler) BalanceRange(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	start, err := parseTimeQuery(r, "start")
	if err != nil || start == nil {
		writeError(w, http.StatusBadRequest, "missing or invalid start", err)
		return
	}

	end, err := parseTimeQuery(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end", err)
		return
	}
	endAt := time.Now().UTC()
	if end != nil {
		endAt = *end
	}

	step := parseDurationQuery(r, "step", 24*time.Hour)

	points, err := h.balanceUC.BalanceRange(r.Context(), code, *start, endAt, step)
	if err != nil {
		writeDomainError(w, "failed to sample balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceRangeFromUseCase(code, points))
}

// Statement lists the account's movements, newest first.
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	q, err := statementQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid statement query", err)
		return
	}

	rows, err := h.accountUC.Statement(r.Context(), code, q)
	if err != nil {
		writeDomainError(w, "failed to get statement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromDomain(rows))
}

// StatementSummary returns the statement with credit/debit turnovers.
func (h *AccountHandler) StatementSummary(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	q, err := statementQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid statement query", err)
		return
	}

	summary, err := h.accountUC.StatementSummary(r.Context(), code, q)
	if err != nil {
		writeDomainError(w, "failed to get statement summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementSummaryFromDomain(summary))
}

// Summary aggregates balances over matching accounts, converted to the
// base asset.
func (h *AccountHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := accountFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err)
		return
	}

	asOf, err := parseTimeQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err)
		return
	}

	summary, err := h.balanceUC.AssetSummary(r.Context(), filter, asOf)
	if err != nil {
		writeDomainError(w, "failed to compute summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary))
}

func accountFilterFromQuery(r *http.Request) (usecase.AccountFilter, error) {
	filter := usecase.AccountFilter{
		Asset:      r.URL.Query().Get("asset"),
		CodePrefix: r.URL.Query().Get("prefix"),
	}

	if name := r.URL.Query().Get("type"); name != "" {
		t, err := domain.ParseAccountType(name)
		if err != nil {
			return usecase.AccountFilter{}, err
		}
		filter.Type = &t
	}

	return filter, nil
}

func statementQueryFromRequest(r *http.Request) (usecase.StatementQuery, error) {
	start, err := parseTimeQuery(r, "start")
	if err != nil {
		return usecase.StatementQuery{}, err
	}

	end, err := parseTimeQuery(r, "end")
	if err != nil {
		return usecase.StatementQuery{}, err
	}

	return usecase.StatementQuery{
		Start:   start,
		End:     end,
		Pending: parseBoolQuery(r, "pending"),
		Tag:     r.URL.Query().Get("tag"),
	}, nil
}
