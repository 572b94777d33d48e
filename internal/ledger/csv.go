package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Header is the CSV header for transactions.csv.
const Header = "id,date,description,amount,account_id,currency_id,transaction_type,transaction_group,category_id,subcategory_id,destination_account_id,destination_amount,payee,payer,reference,tag,notes,reconciliation_reference,reconciled_at,created_at"

const (
	numFields       = 20
	dateFormat      = "2006-01-02"
	colID           = 0
	colDate         = 1
	colDesc         = 2
	colAmount       = 3
	colAcctID       = 4
	colCurrency     = 5
	colType         = 6
	colGroup        = 7
	colCategory     = 8
	colSubcategory  = 9
	colDestAcct     = 10
	colDestAmount   = 11
	colPayee        = 12
	colPayer        = 13
	colRef          = 14
	colTag          = 15
	colNotes        = 16
	colReconRef     = 17
	colReconciledAt = 18
	colCreatedAt    = 19
)

// ReadTransactions reads all rows from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.LedgerTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.LedgerTransaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes rows to a transactions.csv writer (including header).
func WriteTransactions(w io.Writer, txns []model.LedgerTransaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a LedgerTransaction to a CSV row.
func MarshalTransaction(t model.LedgerTransaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colDate] = t.Date
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.String()
	row[colAcctID] = t.AccountID
	row[colCurrency] = t.CurrencyID
	row[colType] = t.TransactionType
	row[colGroup] = t.TransactionGroup
	row[colCategory] = t.CategoryID
	row[colSubcategory] = t.SubcategoryID
	row[colDestAcct] = t.DestinationAccountID

	if !t.DestinationAmount.IsZero() {
		row[colDestAmount] = t.DestinationAmount.String()
	}

	row[colPayee] = t.Payee
	row[colPayer] = t.Payer
	row[colRef] = t.Reference
	row[colTag] = t.Tag
	row[colNotes] = t.Notes
	row[colReconRef] = t.ReconciliationReference

	if !t.ReconciledAt.IsZero() {
		row[colReconciledAt] = t.ReconciledAt.UTC().Format(time.RFC3339)
	}
	if !t.CreatedAt.IsZero() {
		row[colCreatedAt] = t.CreatedAt.UTC().Format(time.RFC3339)
	}

	return row
}

// UnmarshalTransaction converts a CSV row to a LedgerTransaction.
func UnmarshalTransaction(record []string) (model.LedgerTransaction, error) {
	if len(record) != numFields {
		return model.LedgerTransaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	if _, err := time.Parse(dateFormat, record[colDate]); err != nil {
		return model.LedgerTransaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.LedgerTransaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var destAmount decimal.Decimal
	if record[colDestAmount] != "" {
		destAmount, err = decimal.NewFromString(record[colDestAmount])
		if err != nil {
			return model.LedgerTransaction{}, fmt.Errorf("parsing destination_amount %q: %w", record[colDestAmount], err)
		}
	}

	var reconciledAt, createdAt time.Time
	if record[colReconciledAt] != "" {
		reconciledAt, err = time.Parse(time.RFC3339, record[colReconciledAt])
		if err != nil {
			return model.LedgerTransaction{}, fmt.Errorf("parsing reconciled_at %q: %w", record[colReconciledAt], err)
		}
	}
	if record[colCreatedAt] != "" {
		createdAt, err = time.Parse(time.RFC3339, record[colCreatedAt])
		if err != nil {
			return model.LedgerTransaction{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.LedgerTransaction{
		ID:                      record[colID],
		Date:                    record[colDate],
		Description:             record[colDesc],
		Amount:                  amount,
		AccountID:               record[colAcctID],
		CurrencyID:              record[colCurrency],
		TransactionType:         record[colType],
		TransactionGroup:        record[colGroup],
		CategoryID:              record[colCategory],
		SubcategoryID:           record[colSubcategory],
		DestinationAccountID:    record[colDestAcct],
		DestinationAmount:       destAmount,
		Payee:                   record[colPayee],
		Payer:                   record[colPayer],
		Reference:               record[colRef],
		Tag:                     record[colTag],
		Notes:                   record[colNotes],
		ReconciliationReference: record[colReconRef],
		ReconciledAt:            reconciledAt,
		CreatedAt:               createdAt,
	}, nil
}
