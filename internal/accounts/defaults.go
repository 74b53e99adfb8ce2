package accounts

import (
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Defaults returns the accounts a new project starts with: the main import
// account plus a cash wallet.
func Defaults(mainID string, currency money.Currency) []model.Account {
	if mainID == "" {
		mainID = "checking"
	}
	return []model.Account{
		{ID: mainID, Name: "Main account", Type: model.AccountTypeChecking, Currency: currency},
		{ID: "cash", Name: "Cash", Type: model.AccountTypeCash, Currency: currency},
	}
}
