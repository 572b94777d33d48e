package model

// AccountType classifies ledger accounts.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeLoan       AccountType = "loan"
)

// Account represents a row in accounts.csv.
type Account struct {
	ID          string
	Name        string
	Type        AccountType
	CurrencyID  string
	Description string
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard,
		AccountTypeCash, AccountTypeInvestment, AccountTypeLoan:
		return true
	}
	return false
}
