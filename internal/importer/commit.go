package importer

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/model"
)

// LedgerWriter appends transactions to the ledger.
type LedgerWriter interface {
	AddAll(ns []ledger.NewTransaction) ([]model.LedgerTransaction, error)
}

// CommitPolicy decides which reviewed rows are written. Rows with errors are
// never written.
type CommitPolicy struct {
	AcceptWarnings  bool
	AllowDuplicates bool
}

// Accepts reports whether the policy lets tx into the ledger.
func (p CommitPolicy) Accepts(tx model.ImportTransaction) bool {
	if !complete(tx) {
		return false
	}
	if tx.IsDuplicate && !p.AllowDuplicates {
		return false
	}
	switch tx.Status {
	case model.ImportReady:
		return true
	case model.ImportWarning:
		// A duplicate with no other warning is allowed through by AllowDuplicates.
		return p.AcceptWarnings || (tx.IsDuplicate && onlyDuplicateWarning(tx))
	}
	return false
}

// HeldBack counts, per file name, the complete rows the policy refuses. A
// looser policy would commit them.
func (p CommitPolicy) HeldBack(txns []model.ImportTransaction) map[string]int {
	held := make(map[string]int)
	for _, tx := range txns {
		if complete(tx) && tx.Status != model.ImportError && !p.Accepts(tx) {
			held[tx.FileName]++
		}
	}
	return held
}

func onlyDuplicateWarning(tx model.ImportTransaction) bool {
	return len(tx.Validation.Warnings) == 1 && tx.Validation.Warnings[0] == duplicateWarning
}

// CommitResult reports what Commit did.
type CommitResult struct {
	Added   []model.LedgerTransaction
	Skipped int
}

// ToLedger converts a reviewed row into a ledger transaction.
func ToLedger(tx model.ImportTransaction) ledger.NewTransaction {
	account := tx.AccountID
	if account == "" {
		account = tx.FromAccountID
	}
	tag := tx.Tag
	if tag == "" && len(tx.Tags) > 0 {
		tag = strings.Join(tx.Tags, ",")
	}

	n := ledger.NewTransaction{
		Date:                 tx.Date,
		Description:          strings.TrimSpace(tx.Description),
		Amount:               tx.Amount.Decimal,
		AccountID:            account,
		CurrencyID:           tx.CurrencyID,
		TransactionType:      tx.TransactionType,
		TransactionGroup:     tx.TransactionGroup,
		CategoryID:           tx.CategoryID,
		SubcategoryID:        tx.SubcategoryID,
		DestinationAccountID: firstNonEmpty(tx.DestinationAccountID, tx.ToAccountID),
		Payee:                tx.Payee,
		Payer:                tx.Payer,
		Reference:            tx.Reference,
		Tag:                  tag,
		Notes:                tx.Notes,
	}
	if tx.DestinationAmount.Valid {
		n.DestinationAmount = tx.DestinationAmount.Decimal
	}
	return n
}

// Commit writes the rows the policy accepts, in order, with one ledger write.
func Commit(w LedgerWriter, txns []model.ImportTransaction, policy CommitPolicy) (CommitResult, error) {
	var res CommitResult
	var batch []ledger.NewTransaction
	for _, tx := range txns {
		if !policy.Accepts(tx) {
			res.Skipped++
			continue
		}
		batch = append(batch, ToLedger(tx))
	}

	added, err := w.AddAll(batch)
	if err != nil {
		return CommitResult{}, fmt.Errorf("committing %d transactions: %w", len(batch), err)
	}
	res.Added = added
	return res, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
