package model

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/money"
)

// AccountType classifies bank accounts.
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
	AccountTypeCash     AccountType = "cash"
)

// Account is an import target.
type Account struct {
	ID       string
	Name     string
	Type     AccountType
	Currency money.Currency
}

// Category is a user-defined transaction category.
type Category struct {
	ID       string
	Name     string
	ParentID string // "" = top-level
}

// ParseAccountType validates an account type name.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(s); t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit, AccountTypeCash:
		return t, nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}
