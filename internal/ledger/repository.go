// Package ledger stores committed transactions in ledger/transactions.csv.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// FilePath is the transaction table relative to the repo root.
const FilePath = "ledger/transactions.csv"

var (
	// ErrNotFound is returned when no transaction has the requested id.
	ErrNotFound = errors.New("transaction not found")
	// ErrAlreadyReconciled is returned when reconciling a transaction that
	// already carries a different reference.
	ErrAlreadyReconciled = errors.New("transaction already reconciled")
)

// Repository reads and writes the transaction table. It is not safe for
// concurrent writers.
type Repository struct {
	path string
	now  func() time.Time
}

// NewRepository creates a Repository for the repo at repoRoot.
func NewRepository(repoRoot string) *Repository {
	return &Repository{path: filepath.Join(repoRoot, FilePath), now: time.Now}
}

// Path returns the table's file path.
func (r *Repository) Path() string { return r.path }

// All returns every transaction in file order. A missing table is empty.
func (r *Repository) All() ([]model.LedgerTransaction, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", r.path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", r.path, err)
	}
	return txns, nil
}

// Get returns the transaction with the given id.
func (r *Repository) Get(txID string) (model.LedgerTransaction, error) {
	all, err := r.All()
	if err != nil {
		return model.LedgerTransaction{}, err
	}
	for _, t := range all {
		if t.ID == txID {
			return t, nil
		}
	}
	return model.LedgerTransaction{}, fmt.Errorf("%s: %w", txID, ErrNotFound)
}

// Filter returns the transactions for which keep returns true.
func (r *Repository) Filter(keep func(model.LedgerTransaction) bool) ([]model.LedgerTransaction, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	var out []model.LedgerTransaction
	for _, t := range all {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ByAccount returns every transaction of an account, reconciled or not.
func (r *Repository) ByAccount(accountID string) ([]model.LedgerTransaction, error) {
	return r.Filter(func(t model.LedgerTransaction) bool {
		return t.AccountID == accountID
	})
}

// Unreconciled returns the account's transactions without a reconciliation
// reference.
func (r *Repository) Unreconciled(accountID string) ([]model.LedgerTransaction, error) {
	return r.Filter(func(t model.LedgerTransaction) bool {
		return t.AccountID == accountID && !t.IsReconciled()
	})
}

// NewTransaction holds the fields of a transaction to add.
type NewTransaction struct {
	Date                 string
	Description          string
	Amount               decimal.Decimal
	AccountID            string
	CurrencyID           string
	TransactionType      string
	TransactionGroup     string
	CategoryID           string
	SubcategoryID        string
	DestinationAccountID string
	DestinationAmount    decimal.Decimal
	Payee                string
	Payer                string
	Reference            string
	Tag                  string
	Notes                string
}

func (n NewTransaction) validate() error {
	var errs []error
	if _, err := time.Parse(dateFormat, n.Date); err != nil {
		errs = append(errs, fmt.Errorf("date %q is not YYYY-MM-DD", n.Date))
	}
	if strings.TrimSpace(n.Description) == "" {
		errs = append(errs, errors.New("description is empty"))
	}
	if strings.TrimSpace(n.AccountID) == "" {
		errs = append(errs, errors.New("account is empty"))
	}
	return errors.Join(errs...)
}

// Add appends one transaction and returns it with its new id.
func (r *Repository) Add(n NewTransaction) (model.LedgerTransaction, error) {
	added, err := r.AddAll([]NewTransaction{n})
	if err != nil {
		return model.LedgerTransaction{}, err
	}
	return added[0], nil
}

// AddAll appends transactions in order with a single write. Nothing is
// written if any of them is invalid.
func (r *Repository) AddAll(ns []NewTransaction) ([]model.LedgerTransaction, error) {
	if len(ns) == 0 {
		return nil, nil
	}

	now := r.now().UTC().Truncate(time.Second)
	added := make([]model.LedgerTransaction, 0, len(ns))
	for i, n := range ns {
		if err := n.validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		added = append(added, model.LedgerTransaction{
			ID:                   id.NewTransactionID(),
			Date:                 n.Date,
			Description:          n.Description,
			Amount:               n.Amount,
			AccountID:            n.AccountID,
			CurrencyID:           n.CurrencyID,
			TransactionType:      n.TransactionType,
			TransactionGroup:     n.TransactionGroup,
			CategoryID:           n.CategoryID,
			SubcategoryID:        n.SubcategoryID,
			DestinationAccountID: n.DestinationAccountID,
			DestinationAmount:    n.DestinationAmount,
			Payee:                n.Payee,
			Payer:                n.Payer,
			Reference:            n.Reference,
			Tag:                  n.Tag,
			Notes:                n.Notes,
			CreatedAt:            now,
		})
	}

	all, err := r.All()
	if err != nil {
		return nil, err
	}
	if err := r.write(append(all, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// Reconcile tags a transaction with a reconciliation reference. Reconciling
// again with the same reference is a no-op; a different reference fails with
// ErrAlreadyReconciled.
func (r *Repository) Reconcile(txID, reference string) (model.LedgerTransaction, error) {
	if strings.TrimSpace(reference) == "" {
		return model.LedgerTransaction{}, errors.New("reconciliation reference is empty")
	}

	all, err := r.All()
	if err != nil {
		return model.LedgerTransaction{}, err
	}

	for i, t := range all {
		if t.ID != txID {
			continue
		}
		if t.ReconciliationReference == reference {
			return t, nil
		}
		if t.IsReconciled() {
			return t, fmt.Errorf("%s (%s): %w", txID, t.ReconciliationReference, ErrAlreadyReconciled)
		}
		t.ReconciliationReference = reference
		t.ReconciledAt = r.now().UTC().Truncate(time.Second)
		all[i] = t
		if err := r.write(all); err != nil {
			return model.LedgerTransaction{}, err
		}
		return t, nil
	}
	return model.LedgerTransaction{}, fmt.Errorf("%s: %w", txID, ErrNotFound)
}

// write replaces the table through a temp file in the same directory.
func (r *Repository) write(txns []model.LedgerTransaction) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".transactions-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteTransactions(tmp, txns); err != nil {
		tmp.Close()
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting ledger permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
