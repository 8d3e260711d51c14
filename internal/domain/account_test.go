package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestAccount_CheckOverdraft(t *testing.T) {
	tests := []struct {
		name         string
		maxOverdraft *decimal.Decimal
		balance      string
		amount       string
		wantErr      bool
	}{
		{"no limit", nil, "0", "1000000", false},
		{"within limit", decPtr("900"), "100", "1000", false},
		{"at limit", decPtr("900"), "100", "1000", false},
		{"over limit", decPtr("900"), "-900", "1", true},
		{"zero overdraft positive balance", decPtr("0"), "50", "50", false},
		{"zero overdraft breach", decPtr("0"), "50", "51", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Code: "test", MaxOverdraft: tt.maxOverdraft}

			err := a.CheckOverdraft(dec(tt.balance), dec(tt.amount))
			if tt.wantErr {
				var oe *OverdraftError
				if !errors.As(err, &oe) {
					t.Fatalf("expected OverdraftError, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_CheckOverlimit(t *testing.T) {
	tests := []struct {
		name       string
		maxBalance *decimal.Decimal
		balance    string
		amount     string
		wantErr    bool
	}{
		{"no limit", nil, "0", "1000000", false},
		{"within limit", decPtr("1000"), "100", "900", false},
		{"over limit", decPtr("1000"), "100", "901", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Code: "test", MaxBalance: tt.maxBalance}

			err := a.CheckOverlimit(dec(tt.balance), dec(tt.amount))
			if tt.wantErr {
				var oe *OverlimitError
				if !errors.As(err, &oe) {
					t.Fatalf("expected OverlimitError, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_DisplayBalance(t *testing.T) {
	active := &Account{Code: "a"}
	passive := &Account{Code: "p", Passive: true}

	if got := active.DisplayBalance(dec("-42")); !got.Equal(dec("-42")) {
		t.Errorf("active display balance = %s", got)
	}

	if got := passive.DisplayBalance(dec("-42")); !got.Equal(dec("42")) {
		t.Errorf("passive display balance = %s", got)
	}
}

func TestAccountType(t *testing.T) {
	tp, err := ParseAccountType("finagent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tp != AccountFinAgent {
		t.Errorf("expected finagent, got %v", tp)
	}

	if !tp.PassiveByDefault() {
		t.Error("finagent should be passive by default")
	}

	if AccountCurrent.PassiveByDefault() {
		t.Error("current should not be passive by default")
	}

	if _, err := ParseAccountType("bogus"); !errors.Is(err, ErrInvalidAccountType) {
		t.Errorf("expected ErrInvalidAccountType, got %v", err)
	}

	if AccountSaving.String() != "saving" {
		t.Errorf("unexpected name %s", AccountSaving)
	}
}
