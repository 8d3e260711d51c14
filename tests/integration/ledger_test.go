package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func getJSON(t *testing.T, router http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
	}
	return w
}

func TestLedgerFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	t.Run("create asset and accounts over HTTP", func(t *testing.T) {
		w := postJSON(t, stack.Router, "/api/v1/assets", dto.CreateAssetRequest{Code: "usd", Precision: 2})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		var asset dto.AssetResponse
		if err := json.Unmarshal(w.Body.Bytes(), &asset); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if asset.Code != "USD" {
			t.Errorf("expected normalized code USD, got %s", asset.Code)
		}

		for _, code := range []string{"cash.wallet", "expenses.rent"} {
			w := postJSON(t, stack.Router, "/api/v1/accounts", dto.CreateAccountRequest{
				Code:  code,
				Asset: "USD",
			})
			if w.Code != http.StatusCreated {
				t.Fatalf("account %s: expected status %d, got %d: %s", code, http.StatusCreated, w.Code, w.Body.String())
			}
		}
	})

	t.Run("move updates both balances", func(t *testing.T) {
		amount := decimal.NewFromFloat(250.75)
		w := postJSON(t, stack.Router, "/api/v1/moves", dto.MoveRequest{
			Debit:  "CASH.WALLET",
			Credit: "EXPENSES.RENT",
			Amount: &amount,
			Tag:    "rent",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		var ids dto.PostingIDsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &ids); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(ids.IDs) != 1 {
			t.Fatalf("expected one posting id, got %v", ids.IDs)
		}

		var balance dto.BalanceResponse
		if w := getJSON(t, stack.Router, "/api/v1/accounts/CASH.WALLET/balance", &balance); w.Code != http.StatusOK {
			t.Fatalf("balance request failed: %d %s", w.Code, w.Body.String())
		}
		if !balance.Balance.Equal(decimal.NewFromFloat(250.75)) {
			t.Errorf("expected wallet balance 250.75, got %s", balance.Balance)
		}

		if w := getJSON(t, stack.Router, "/api/v1/accounts/EXPENSES.RENT/balance", &balance); w.Code != http.StatusOK {
			t.Fatalf("balance request failed: %d %s", w.Code, w.Body.String())
		}
		if !balance.Balance.Equal(decimal.NewFromFloat(-250.75)) {
			t.Errorf("expected rent balance -250.75, got %s", balance.Balance)
		}
	})

	t.Run("statement shows the movement", func(t *testing.T) {
		var rows []*dto.StatementRowResponse
		if w := getJSON(t, stack.Router, "/api/v1/accounts/CASH.WALLET/statement?tag=rent", &rows); w.Code != http.StatusOK {
			t.Fatalf("statement request failed: %d %s", w.Code, w.Body.String())
		}
		if len(rows) != 1 {
			t.Fatalf("expected one statement row, got %d", len(rows))
		}
		if !rows[0].Amount.Equal(decimal.NewFromFloat(250.75)) {
			t.Errorf("expected debit side amount 250.75, got %s", rows[0].Amount)
		}
		if rows[0].Counterparty != "EXPENSES.RENT" {
			t.Errorf("expected counterparty EXPENSES.RENT, got %s", rows[0].Counterparty)
		}
	})

	t.Run("move against unknown account is 404", func(t *testing.T) {
		amount := decimal.NewFromInt(10)
		w := postJSON(t, stack.Router, "/api/v1/moves", dto.MoveRequest{
			Debit:  "CASH.WALLET",
			Credit: "NO.SUCH.ACCOUNT",
			Amount: &amount,
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d: %s", http.StatusNotFound, w.Code, w.Body.String())
		}
	})

	t.Run("overdraft limit rejects the move", func(t *testing.T) {
		zero := decimal.Zero
		w := postJSON(t, stack.Router, "/api/v1/accounts", dto.CreateAccountRequest{
			Code:         "cash.tight",
			Asset:        "USD",
			MaxOverdraft: &zero,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		amount := decimal.NewFromInt(5)
		w = postJSON(t, stack.Router, "/api/v1/moves", dto.MoveRequest{
			Debit:  "EXPENSES.RENT",
			Credit: "CASH.TIGHT",
			Amount: &amount,
		})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
		}
	})
}

func TestPendingCompletion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	stack.DB.CreateTestAsset(ctx, "USD", 2)
	stack.DB.CreateTestAccount(ctx, "CASH.A", "USD", domain.AccountCurrent, false)
	stack.DB.CreateTestAccount(ctx, "CASH.B", "USD", domain.AccountCurrent, false)

	amount := decimal.NewFromInt(40)
	ids, err := stack.Engine.Move(ctx, usecase.MoveInput{
		Debit:   "CASH.B",
		Credit:  "CASH.A",
		Amount:  &amount,
		Pending: true,
	})
	if err != nil {
		t.Fatalf("pending move failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one posting, got %v", ids)
	}

	// Pending: the credit leg reduces A immediately, B sees nothing yet.
	balA, err := stack.Balances.Balance(ctx, usecase.BalanceInput{Account: "CASH.A"})
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balA.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("expected A balance -40 while pending, got %s", balA)
	}

	balB, err := stack.Balances.Balance(ctx, usecase.BalanceInput{Account: "CASH.B"})
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balB.IsZero() {
		t.Errorf("expected B balance 0 while pending, got %s", balB)
	}

	if err := stack.Engine.Complete(ctx, ids, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	balB, err = stack.Balances.Balance(ctx, usecase.BalanceInput{Account: "CASH.B"})
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balB.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected B balance 40 after completion, got %s", balB)
	}
}

func TestDeleteAndPurge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	stack.DB.CreateTestAsset(ctx, "USD", 2)
	stack.DB.CreateTestAccount(ctx, "CASH.A", "USD", domain.AccountCurrent, false)
	stack.DB.CreateTestAccount(ctx, "CASH.B", "USD", domain.AccountCurrent, false)

	amount := decimal.NewFromInt(15)
	ids, err := stack.Engine.Move(ctx, usecase.MoveInput{
		Debit:  "CASH.A",
		Credit: "CASH.B",
		Amount: &amount,
	})
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}

	if err := stack.Engine.Delete(ctx, ids); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	bal, err := stack.Balances.Balance(ctx, usecase.BalanceInput{Account: "CASH.A"})
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("expected balance restored to 0 after delete, got %s", bal)
	}

	purged, err := stack.Engine.Purge(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged posting, got %d", purged)
	}
}
