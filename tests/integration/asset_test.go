package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/domain"
)

func patchJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	r := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRenameAssetCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	stack.DB.CreateTestAsset(ctx, "USD", 2)
	stack.DB.CreateTestAsset(ctx, "EUR", 2)
	stack.DB.CreateTestAccount(ctx, "cash.eur", "EUR", domain.AccountCash, false)
	stack.DB.SetTestRate(ctx, "EUR", "USD", decimal.RequireFromString("1.10"), time.Now().UTC().Add(-time.Hour))

	newCode := "EURO"
	w := patchJSON(t, stack.Router, "/api/v1/assets/EUR", dto.UpdateAssetRequest{Code: &newCode})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var asset dto.AssetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &asset); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if asset.Code != "EURO" {
		t.Errorf("expected renamed code EURO, got %s", asset.Code)
	}

	var acctAsset string
	if err := stack.DB.Pool.QueryRow(ctx, `SELECT asset FROM accounts WHERE code = $1`, "cash.eur").Scan(&acctAsset); err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if acctAsset != "EURO" {
		t.Errorf("expected account asset EURO, got %s", acctAsset)
	}

	var pairCount int
	if err := stack.DB.Pool.QueryRow(ctx, `SELECT count(*) FROM rates WHERE asset_from = $1 AND asset_to = $2`, "EURO", "USD").Scan(&pairCount); err != nil {
		t.Fatalf("failed to read rates: %v", err)
	}
	if pairCount != 1 {
		t.Errorf("expected the rate pair to follow the rename, got %d rows", pairCount)
	}
}
