package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account. The set is extensible; the numeric
// gaps leave room for deployment-specific types.
type AccountType int

const (
	AccountCredit   AccountType = 0
	AccountCash     AccountType = 10
	AccountCurrent  AccountType = 100
	AccountSaving   AccountType = 300
	AccountTransit  AccountType = 400
	AccountEscrow   AccountType = 500
	AccountHolding  AccountType = 510
	AccountVirtual  AccountType = 900
	AccountTemp     AccountType = 901
	AccountExchange AccountType = 1000

	AccountGS       AccountType = 10000
	AccountSupplier AccountType = 10001
	AccountCustomer AccountType = 10002
	AccountFinAgent AccountType = 10003
	AccountTax      AccountType = 10004
)

var accountTypeNames = map[AccountType]string{
	AccountCredit:   "credit",
	AccountCash:     "cash",
	AccountCurrent:  "current",
	AccountSaving:   "saving",
	AccountTransit:  "transit",
	AccountEscrow:   "escrow",
	AccountHolding:  "holding",
	AccountVirtual:  "virtual",
	AccountTemp:     "temp",
	AccountExchange: "exchange",
	AccountGS:       "gs",
	AccountSupplier: "supplier",
	AccountCustomer: "customer",
	AccountFinAgent: "finagent",
	AccountTax:      "tax",
}

var accountTypeIDs = func() map[string]AccountType {
	m := make(map[string]AccountType, len(accountTypeNames))
	for id, name := range accountTypeNames {
		m[name] = id
	}
	return m
}()

// String returns the symbolic name of the type.
func (t AccountType) String() string {
	if name, ok := accountTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the value is a known account type.
func (t AccountType) Valid() bool {
	_, ok := accountTypeNames[t]
	return ok
}

// PassiveByDefault reports whether accounts of this type are passive
// unless explicitly overridden at creation.
func (t AccountType) PassiveByDefault() bool {
	switch t {
	case AccountGS, AccountSupplier, AccountCustomer, AccountFinAgent, AccountTax:
		return true
	}
	return false
}

// ParseAccountType resolves a symbolic type name.
func ParseAccountType(name string) (AccountType, error) {
	t, ok := accountTypeIDs[name]
	if !ok {
		return 0, ErrInvalidAccountType
	}
	return t, nil
}

// Account is a single-asset sub-ledger identified by a unique code.
//
// A passive account (liabilities, counterparties) reports its balance and
// statement deltas with the sign inverted; internally all postings keep
// natural debit/credit semantics.
type Account struct {
	ID           string
	Code         string
	Asset        string
	Type         AccountType
	Passive      bool
	MaxOverdraft *decimal.Decimal
	MaxBalance   *decimal.Decimal
	Note         string
	CreatedAt    time.Time
}

// CheckOverdraft verifies that crediting amount against the given balance
// keeps the account within its overdraft limit.
func (a *Account) CheckOverdraft(balance, amount decimal.Decimal) error {
	if a.MaxOverdraft == nil {
		return nil
	}

	if balance.Sub(amount).LessThan(a.MaxOverdraft.Neg()) {
		return &OverdraftError{Account: a.Code, Amount: amount}
	}

	return nil
}

// CheckOverlimit verifies that debiting amount against the given balance
// keeps the account within its maximum balance.
func (a *Account) CheckOverlimit(balance, amount decimal.Decimal) error {
	if a.MaxBalance == nil {
		return nil
	}

	if balance.Add(amount).GreaterThan(*a.MaxBalance) {
		return &OverlimitError{Account: a.Code, Amount: amount}
	}

	return nil
}

// DisplayBalance applies the passive sign convention to a natural balance.
func (a *Account) DisplayBalance(natural decimal.Decimal) decimal.Decimal {
	if a.Passive {
		return natural.Neg()
	}
	return natural
}

// AccountUpdate carries the mutable account fields. Nil means unchanged.
type AccountUpdate struct {
	Code         *string
	Note         *string
	Type         *AccountType
	Passive      *bool
	MaxOverdraft *decimal.Decimal
	MaxBalance   *decimal.Decimal
}
