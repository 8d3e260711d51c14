package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/usecase"
)

func TestAccountService_CreateAccount(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})
	ctx := context.Background()

	f.asset(t, "USD")

	account, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		Code:  "wallet",
		Asset: "usd",
		Type:  domain.AccountCurrent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Code != "WALLET" || account.Asset != "USD" {
		t.Errorf("codes should be normalized upper-case: %+v", account)
	}
	if account.Passive {
		t.Error("current accounts are active by default")
	}

	// A fresh account opens at zero, anchored by its service postings.
	f.requireBalance(t, "WALLET", "0")

	rows, err := f.accounts.Statement(ctx, "WALLET", usecase.StatementQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("service postings must not appear on the statement, got %d rows", len(rows))
	}
}

func TestAccountService_PassiveByType(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})
	ctx := context.Background()

	f.asset(t, "USD")

	supplier, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		Code:  "ACME",
		Asset: "USD",
		Type:  domain.AccountSupplier,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !supplier.Passive {
		t.Error("supplier accounts are passive by default")
	}

	override, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		Code:    "ACME2",
		Asset:   "USD",
		Type:    domain.AccountSupplier,
		Passive: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if override.Passive {
		t.Error("explicit passive flag must win over the type default")
	}
}

func TestAccountService_DuplicateCode(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})
	ctx := context.Background()

	f.asset(t, "USD")
	f.account(t, usecase.CreateAccountInput{Code: "A", Asset: "USD"})

	_, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		Code:  "a",
		Asset: "USD",
		Type:  domain.AccountCurrent,
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestAccountService_UnknownAsset(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})

	_, err := f.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Code:  "A",
		Asset: "XXX",
		Type:  domain.AccountCurrent,
	})
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
}

func TestAccountService_UpdateAndList(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})
	ctx := context.Background()

	f.asset(t, "USD")
	f.asset(t, "EUR")
	f.account(t, usecase.CreateAccountInput{Code: "CASH.MAIN", Asset: "USD", Type: domain.AccountCash})
	f.account(t, usecase.CreateAccountInput{Code: "CASH.SIDE", Asset: "USD", Type: domain.AccountCash})
	f.account(t, usecase.CreateAccountInput{Code: "EURWALLET", Asset: "EUR"})

	byAsset, err := f.accounts.ListAccounts(ctx, usecase.AccountFilter{Asset: "usd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byAsset) != 2 {
		t.Errorf("expected 2 USD accounts, got %d", len(byAsset))
	}

	byPrefix, err := f.accounts.ListAccounts(ctx, usecase.AccountFilter{CodePrefix: "CASH."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byPrefix) != 2 {
		t.Errorf("expected 2 CASH accounts, got %d", len(byPrefix))
	}

	if err := f.accounts.UpdateAccount(ctx, "CASH.SIDE", domain.AccountUpdate{
		Note:         strPtr("petty cash"),
		MaxOverdraft: decPtr("50"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := f.accounts.GetAccount(ctx, "CASH.SIDE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Note != "petty cash" || updated.MaxOverdraft == nil || !updated.MaxOverdraft.Equal(dec("50")) {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestAccountService_StatementSummary(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})
	ctx := context.Background()

	f.asset(t, "USD")
	f.account(t, usecase.CreateAccountInput{Code: "A", Asset: "USD"})
	f.account(t, usecase.CreateAccountInput{Code: "B", Asset: "USD"})

	if _, err := f.engine.Move(ctx, usecase.MoveInput{Debit: "A", Amount: decPtr("100"), Tag: "income"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.engine.Move(ctx, usecase.MoveInput{Debit: "B", Credit: "A", Amount: decPtr("30"), Tag: "rent"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := f.accounts.StatementSummary(ctx, "A", usecase.StatementQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Statement) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(summary.Statement))
	}
	if !summary.Debit.Equal(dec("100")) {
		t.Errorf("expected debit turnover 100, got %s", summary.Debit)
	}
	if !summary.Credit.Equal(dec("30")) {
		t.Errorf("expected credit turnover 30, got %s", summary.Credit)
	}
	if !summary.Net.Equal(dec("70")) {
		t.Errorf("expected net 70, got %s", summary.Net)
	}

	tagged, err := f.accounts.Statement(ctx, "A", usecase.StatementQuery{Tag: "rent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tagged) != 1 || !tagged[0].Amount.Equal(dec("-30")) {
		t.Errorf("expected the single credit row, got %+v", tagged)
	}
}

func TestAccountService_DeleteAccount(t *testing.T) {
	f := newFixture(t, usecase.EngineConfig{KeepIntegrity: true})
	ctx := context.Background()

	f.asset(t, "USD")
	f.account(t, usecase.CreateAccountInput{Code: "A", Asset: "USD"})

	if err := f.accounts.DeleteAccount(ctx, "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.accounts.GetAccount(ctx, "A"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected account gone, got %v", err)
	}

	if err := f.accounts.DeleteAccount(ctx, "A"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}
