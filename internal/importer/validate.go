package importer

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// AccountChecker tests whether an account ID exists.
type AccountChecker interface {
	Exists(id string) bool
}

// Validate checks an imported row. Errors block the row, warnings flag it for
// review and notes only echo what was mapped. accounts may be nil.
func Validate(tx model.ImportTransaction, accounts AccountChecker) model.Validation {
	var v model.Validation

	if tx.Date == "" {
		v.Errors = append(v.Errors, "missing or unparseable date")
	}
	if strings.TrimSpace(tx.Description) == "" {
		v.Errors = append(v.Errors, "description is empty")
	}
	switch {
	case !tx.Amount.Valid:
		v.Errors = append(v.Errors, "amount is not a number")
	case tx.Amount.Decimal.IsZero():
		v.Errors = append(v.Errors, "amount is zero")
	}
	if strings.TrimSpace(tx.SubcategoryID) == "" {
		v.Errors = append(v.Errors, "missing subcategory")
	}

	accountIDs := []string{tx.AccountID, tx.FromAccountID, tx.ToAccountID}
	mapped := false
	for _, a := range accountIDs {
		if strings.TrimSpace(a) == "" {
			continue
		}
		mapped = true
		if accounts != nil && !accounts.Exists(a) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("account %q is not in the chart of accounts", a))
		}
	}
	if !mapped {
		v.Warnings = append(v.Warnings, "no account mapped")
	}

	typ := strings.ToLower(strings.TrimSpace(tx.TransactionType))
	switch {
	case typ == "income":
		if blank(tx.Payer) {
			v.Warnings = append(v.Warnings, "income without a payer")
		}
	case typ == "expenses" || typ == "expense":
		if blank(tx.Payee) {
			v.Warnings = append(v.Warnings, "expense without a payee")
		}
	case typ == "transfer":
		if blank(tx.DestinationAccountID) {
			v.Warnings = append(v.Warnings, "transfer without a destination account")
		}
	case strings.Contains(typ, "investment"):
		if blank(tx.DestinationAccountID) {
			v.Warnings = append(v.Warnings, "investment without a destination account")
		}
		if !tx.DestinationAmount.Valid || tx.DestinationAmount.Decimal.IsZero() {
			v.Warnings = append(v.Warnings, "investment without a destination amount")
		}
		if blank(tx.Payee) && blank(tx.Payer) {
			v.Warnings = append(v.Warnings, "investment without broker details (payee or payer)")
		}
	}

	for _, opt := range []struct {
		label, value string
	}{
		{"category", tx.CategoryID},
		{"payee", tx.Payee},
		{"payer", tx.Payer},
		{"reference", tx.Reference},
		{"tags", tx.Tag},
		{"notes", tx.Notes},
	} {
		if !blank(opt.value) {
			v.Notes = append(v.Notes, fmt.Sprintf("%s mapped: %s", opt.label, opt.value))
		}
	}

	return v
}

// DeriveStatus turns a validation result into a review status.
func DeriveStatus(v model.Validation, isDuplicate bool) model.ImportStatus {
	switch {
	case len(v.Errors) > 0:
		return model.ImportError
	case len(v.Warnings) > 0 || isDuplicate:
		return model.ImportWarning
	}
	return model.ImportReady
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
