package banks

import "github.com/cleared-dev/tally/internal/model"

// ChaseChecking is the layout of Chase checking account exports:
//
//	Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
func ChaseChecking() model.BankConfiguration {
	return model.BankConfiguration{
		ID:   "chase-checking",
		Name: "Chase Checking",
		Type: "checking",
		FieldMapping: model.FieldMapping{
			model.FieldDate:             "Posting Date",
			model.FieldDescription:      "Description",
			model.FieldAmount:           "Amount",
			model.FieldTransactionGroup: "Type",
			model.FieldReference:        "Check or Slip #",
		},
		Settings: model.BankSettings{
			HasHeaders:     true,
			Delimiter:      ",",
			Encoding:       "utf-8",
			DateFormat:     model.DateFormatMDY,
			AmountHandling: model.AmountSigned,
			Currency:       "USD",
			AccountID:      "checking",
		},
	}
}

// GenericDebitCredit is a plain export with separate debit and credit
// columns and ISO dates.
func GenericDebitCredit() model.BankConfiguration {
	return model.BankConfiguration{
		ID:   "generic-debit-credit",
		Name: "Generic debit/credit",
		Type: "checking",
		FieldMapping: model.FieldMapping{
			model.FieldDate:        "Date",
			model.FieldDescription: "Description",
			model.FieldDebit:       "Debit",
			model.FieldCredit:      "Credit",
			model.FieldReference:   "Reference",
			model.FieldPayee:       "Payee",
		},
		Settings: model.BankSettings{
			HasHeaders:     true,
			Delimiter:      ",",
			DateFormat:     model.DateFormatISO,
			AmountHandling: model.AmountSeparate,
			AccountID:      "checking",
		},
	}
}

// Presets returns the built-in bank configurations.
func Presets() []model.BankConfiguration {
	return []model.BankConfiguration{ChaseChecking(), GenericDebitCredit()}
}
