package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportStatus is the review state of an imported row.
type ImportStatus string

const (
	ImportReady   ImportStatus = "ready"
	ImportWarning ImportStatus = "warning"
	ImportError   ImportStatus = "error"
)

// Validation collects what the validator found on an imported row. Errors
// block the row; Warnings and Notes do not.
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Notes    []string `json:"notes,omitempty"`
}

// ImportTransaction is a bank row mapped onto the canonical transaction shape,
// waiting for review.
type ImportTransaction struct {
	ID                   string              `json:"id"`
	Date                 string              `json:"date"` // YYYY-MM-DD, empty when unparseable
	Description          string              `json:"description"`
	Amount               decimal.NullDecimal `json:"amount"` // invalid when unparseable
	AccountID            string              `json:"accountId,omitempty"`
	FromAccountID        string              `json:"fromAccountId,omitempty"`
	ToAccountID          string              `json:"toAccountId,omitempty"`
	DestinationAccountID string              `json:"destinationAccountId,omitempty"`
	DestinationAmount    decimal.NullDecimal `json:"destinationAmount"`
	TransactionType      string              `json:"transactionType,omitempty"`
	TransactionGroup     string              `json:"transactionGroup,omitempty"`
	CategoryID           string              `json:"categoryId,omitempty"`
	SubcategoryID        string              `json:"subcategoryId,omitempty"`
	Payee                string              `json:"payee,omitempty"`
	Payer                string              `json:"payer,omitempty"`
	Reference            string              `json:"reference,omitempty"`
	Tag                  string              `json:"tag,omitempty"`
	Tags                 []string            `json:"tags,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	CurrencyID           string              `json:"currencyId"`
	FileName             string              `json:"fileName"`
	RowIndex             int                 `json:"rowIndex"`
	RawData              RawRow              `json:"rawData"`

	Status       ImportStatus  `json:"status"`
	IsDuplicate  bool          `json:"isDuplicate"`
	Validation   Validation    `json:"validation"`
	RulesApplied []AppliedRule `json:"rulesApplied,omitempty"`
}

// Get returns the string form of a transaction field.
func (t *ImportTransaction) Get(f Field) (string, error) {
	switch f.Canonical() {
	case FieldDate:
		return t.Date, nil
	case FieldDescription:
		return t.Description, nil
	case FieldAmount:
		return nullString(t.Amount), nil
	case FieldAccountID:
		return t.AccountID, nil
	case FieldFromAccountID:
		return t.FromAccountID, nil
	case FieldToAccountID:
		return t.ToAccountID, nil
	case FieldDestinationAccountID:
		return t.DestinationAccountID, nil
	case FieldDestinationAmount:
		return nullString(t.DestinationAmount), nil
	case FieldTransactionType:
		return t.TransactionType, nil
	case FieldTransactionGroup:
		return t.TransactionGroup, nil
	case FieldCategoryID:
		return t.CategoryID, nil
	case FieldSubcategoryID:
		return t.SubcategoryID, nil
	case FieldPayee:
		return t.Payee, nil
	case FieldPayer:
		return t.Payer, nil
	case FieldReference:
		return t.Reference, nil
	case FieldTag:
		return t.Tag, nil
	case FieldTags:
		return strings.Join(t.Tags, ","), nil
	case FieldNotes:
		return t.Notes, nil
	case FieldCurrencyID:
		return t.CurrencyID, nil
	}
	return "", fmt.Errorf("%q is not a transaction field", f)
}

// Set assigns the string form of a transaction field. Amounts must parse as
// decimals and dates must be YYYY-MM-DD; an empty value clears either.
func (t *ImportTransaction) Set(f Field, value string) error {
	switch f.Canonical() {
	case FieldDate:
		value = strings.TrimSpace(value)
		if value != "" {
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return fmt.Errorf("parsing date %q: %w", value, err)
			}
		}
		t.Date = value
	case FieldDescription:
		t.Description = value
	case FieldAmount:
		d, err := parseNull(value)
		if err != nil {
			return fmt.Errorf("parsing amount %q: %w", value, err)
		}
		t.Amount = d
	case FieldAccountID:
		t.AccountID = value
	case FieldFromAccountID:
		t.FromAccountID = value
	case FieldToAccountID:
		t.ToAccountID = value
	case FieldDestinationAccountID:
		t.DestinationAccountID = value
	case FieldDestinationAmount:
		d, err := parseNull(value)
		if err != nil {
			return fmt.Errorf("parsing destination amount %q: %w", value, err)
		}
		t.DestinationAmount = d
	case FieldTransactionType:
		t.TransactionType = value
	case FieldTransactionGroup:
		t.TransactionGroup = value
	case FieldCategoryID:
		t.CategoryID = value
	case FieldSubcategoryID:
		t.SubcategoryID = value
	case FieldPayee:
		t.Payee = value
	case FieldPayer:
		t.Payer = value
	case FieldReference:
		t.Reference = value
	case FieldTag:
		t.Tag = value
	case FieldTags:
		t.Tags = SplitTags(value)
	case FieldNotes:
		t.Notes = value
	case FieldCurrencyID:
		t.CurrencyID = value
	default:
		return fmt.Errorf("%q is not a transaction field", f)
	}
	return nil
}

// SplitTags splits a tag cell on commas and semicolons, dropping blanks.
func SplitTags(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	var tags []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseNull(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
