package accounts

import "github.com/cleared-dev/tally/internal/model"

// Defaults returns the accounts a new project starts with, in the base
// currency.
func Defaults(currencyID string) []model.Account {
	return []model.Account{
		{ID: "checking", Name: "Checking", Type: model.AccountTypeChecking, CurrencyID: currencyID, Description: "Primary checking account"},
		{ID: "savings", Name: "Savings", Type: model.AccountTypeSavings, CurrencyID: currencyID, Description: "Savings account"},
		{ID: "credit-card", Name: "Credit Card", Type: model.AccountTypeCreditCard, CurrencyID: currencyID},
		{ID: "cash", Name: "Cash", Type: model.AccountTypeCash, CurrencyID: currencyID},
		{ID: "brokerage", Name: "Brokerage", Type: model.AccountTypeInvestment, CurrencyID: currencyID, Description: "Investment account"},
	}
}
