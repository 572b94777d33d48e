package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTransaction is a committed row of ledger/transactions.csv.
type LedgerTransaction struct {
	ID                      string
	Date                    string          // YYYY-MM-DD
	Description             string
	Amount                  decimal.Decimal // negative = expense, positive = income
	AccountID               string
	CurrencyID              string
	TransactionType         string
	TransactionGroup        string
	CategoryID              string
	SubcategoryID           string
	DestinationAccountID    string
	DestinationAmount       decimal.Decimal
	Payee                   string
	Payer                   string
	Reference               string
	Tag                     string
	Notes                   string
	ReconciliationReference string // empty until reconciled
	ReconciledAt            time.Time
	CreatedAt               time.Time
}

// IsReconciled reports whether the transaction has been confirmed against a
// bank statement.
func (t LedgerTransaction) IsReconciled() bool {
	return t.ReconciliationReference != ""
}
