// Package reconcile matches ledger transactions against a bank statement
// total and tags them with a reconciliation reference.
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// Step is the state of a Session.
type Step string

const (
	StepSetup     Step = "setup"
	StepSelecting Step = "selecting"
)

// Epsilon is the largest difference still treated as balanced.
var Epsilon = decimal.New(1, -2)

var (
	ErrNotConfirmed      = errors.New("reconciliation is out of balance and was not confirmed")
	ErrEmptySelection    = errors.New("no transactions selected")
	ErrAlreadyReconciled = errors.New("transaction is already reconciled")
	ErrOtherAccount      = errors.New("transaction belongs to another account")
)

// Repository is the ledger as seen by a session.
type Repository interface {
	Get(txID string) (model.LedgerTransaction, error)
	ByAccount(accountID string) ([]model.LedgerTransaction, error)
	Unreconciled(accountID string) ([]model.LedgerTransaction, error)
	Reconcile(txID, reference string) (model.LedgerTransaction, error)
}

// AccountChecker reports whether an account exists.
type AccountChecker interface {
	Exists(accountID string) bool
}

// ConfirmFunc is asked whether an unbalanced session may be completed.
type ConfirmFunc func(Summary) bool

// Summary is the live state of a session.
type Summary struct {
	Reference      string          `json:"reference"`
	AccountID      string          `json:"accountId"`
	StatementTotal decimal.Decimal `json:"statementTotal"`
	RunningTotal   decimal.Decimal `json:"runningTotal"`
	Difference     decimal.Decimal `json:"difference"` // running minus statement
	Selected       int             `json:"selected"`
	Balanced       bool            `json:"balanced"`
}

// Completion records a finished reconciliation.
type Completion struct {
	Summary
	TransactionIDs []string  `json:"transactionIds"`
	Forced         bool      `json:"forced"` // completed out of balance
	CompletedAt    time.Time `json:"completedAt"`
}

// CommitError is a completion that stopped part way. Transactions in
// Committed keep their reference; the session keeps its selection so the
// completion can be retried.
type CommitError struct {
	Reference string
	Committed []string
	Failed    string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("reconciling %s with %q failed after %d transactions: %v", e.Failed, e.Reference, len(e.Committed), e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Options holds the optional collaborators of a Session.
type Options struct {
	Accounts AccountChecker
	Now      func() time.Time
	Logger   *zerolog.Logger
}

// Session is a single reconciliation in progress. It is not safe for
// concurrent use.
type Session struct {
	repo     Repository
	accounts AccountChecker
	now      func() time.Time
	log      zerolog.Logger

	step           Step
	reference      string
	accountID      string
	statementTotal decimal.Decimal
	selected       map[string]struct{}
	running        decimal.Decimal
}

// NewSession returns a session in the setup step.
func NewSession(repo Repository, opts Options) *Session {
	s := &Session{repo: repo, accounts: opts.Accounts, now: opts.Now, log: zerolog.Nop()}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	}
	s.clear()
	return s
}

// GenerateReference returns a fresh reference like "REC-20250131-9f3a1c".
func GenerateReference(now time.Time) string {
	return id.NewReconciliationReference(now)
}

// Step returns the current state.
func (s *Session) Step() Step { return s.step }

// Start validates the setup input and moves to the selecting step.
func (s *Session) Start(reference, statementTotal, accountID string) error {
	if s.step != StepSetup {
		return fmt.Errorf("cannot start: session is %s", s.step)
	}

	reference = strings.TrimSpace(reference)
	accountID = strings.TrimSpace(accountID)

	var errs []error
	if reference == "" {
		errs = append(errs, errors.New("reconciliation reference is required"))
	}
	switch {
	case accountID == "":
		errs = append(errs, errors.New("account is required"))
	case s.accounts != nil && !s.accounts.Exists(accountID):
		errs = append(errs, fmt.Errorf("account %q does not exist", accountID))
	}
	total, err := parseTotal(statementTotal)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.clear()
	s.step = StepSelecting
	s.reference = reference
	s.accountID = accountID
	s.statementTotal = total
	s.log.Info().Str("reference", reference).Str("account", accountID).Str("statement_total", total.String()).Msg("reconciliation started")
	return nil
}

func parseTotal(raw string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if clean == "" {
		return decimal.Decimal{}, errors.New("statement total is required")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("statement total %q is not a number", raw)
	}
	return d, nil
}

// Toggle adds a transaction to the selection or removes it. A failed add
// leaves the selection unchanged. A removal always takes effect, even for a
// transaction gone from the ledger; errors re-reading the rest of the
// selection are still returned.
func (s *Session) Toggle(txID string) error {
	if s.step != StepSelecting {
		return fmt.Errorf("cannot select: session is %s", s.step)
	}

	if _, ok := s.selected[txID]; ok {
		delete(s.selected, txID)
		return s.recompute()
	}

	tx, err := s.repo.Get(txID)
	if err != nil {
		return fmt.Errorf("selecting %s: %w", txID, err)
	}
	if tx.IsReconciled() {
		return fmt.Errorf("selecting %s: %w (%s)", txID, ErrAlreadyReconciled, tx.ReconciliationReference)
	}
	if tx.AccountID != s.accountID {
		return fmt.Errorf("selecting %s: %w", txID, ErrOtherAccount)
	}

	s.selected[txID] = struct{}{}
	if err := s.recompute(); err != nil {
		delete(s.selected, txID)
		return err
	}
	return nil
}

// recompute sums the selected transactions from fresh repository reads.
func (s *Session) recompute() error {
	sum := decimal.Zero
	for _, txID := range s.Selected() {
		tx, err := s.repo.Get(txID)
		if err != nil {
			return fmt.Errorf("reading %s: %w", txID, err)
		}
		sum = sum.Add(tx.Amount)
	}
	s.running = sum
	return nil
}

// IsSelected reports whether a transaction is in the selection.
func (s *Session) IsSelected(txID string) bool {
	_, ok := s.selected[txID]
	return ok
}

// Selected returns the selected ids, sorted.
func (s *Session) Selected() []string {
	ids := make([]string, 0, len(s.selected))
	for txID := range s.selected {
		ids = append(ids, txID)
	}
	sort.Strings(ids)
	return ids
}

// Candidates returns the session account's transactions by date.
// Reconciled ones are included only when showReconciled is set.
func (s *Session) Candidates(showReconciled bool) ([]model.LedgerTransaction, error) {
	if s.step != StepSelecting {
		return nil, fmt.Errorf("no account chosen: session is %s", s.step)
	}
	return Candidates(s.repo, s.accountID, showReconciled)
}

// Candidates lists an account's transactions by date without a session.
func Candidates(repo Repository, accountID string, showReconciled bool) ([]model.LedgerTransaction, error) {
	var (
		txns []model.LedgerTransaction
		err  error
	)
	if showReconciled {
		txns, err = repo.ByAccount(accountID)
	} else {
		txns, err = repo.Unreconciled(accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date < txns[j].Date })
	return txns, nil
}

// Summary returns the current totals.
func (s *Session) Summary() Summary {
	diff := s.running.Sub(s.statementTotal)
	return Summary{
		Reference:      s.reference,
		AccountID:      s.accountID,
		StatementTotal: s.statementTotal,
		RunningTotal:   s.running,
		Difference:     diff,
		Selected:       len(s.selected),
		Balanced:       diff.Abs().LessThan(Epsilon),
	}
}

// Complete tags every selected transaction with the session reference and
// resets the session. An unbalanced session needs confirm to return true.
// Reconciliations already written are not rolled back when a later one
// fails.
func (s *Session) Complete(confirm ConfirmFunc) (*Completion, error) {
	if s.step != StepSelecting {
		return nil, fmt.Errorf("cannot complete: session is %s", s.step)
	}
	if len(s.selected) == 0 {
		return nil, ErrEmptySelection
	}
	if err := s.recompute(); err != nil {
		return nil, err
	}

	sum := s.Summary()
	forced := false
	if !sum.Balanced {
		if confirm == nil || !confirm(sum) {
			return nil, ErrNotConfirmed
		}
		forced = true
	}

	ids := s.Selected()
	var committed []string
	for _, txID := range ids {
		tx, err := s.repo.Get(txID)
		if err == nil && tx.ReconciliationReference == s.reference {
			committed = append(committed, txID)
			continue
		}
		if err == nil {
			_, err = s.repo.Reconcile(txID, s.reference)
		}
		if err != nil {
			s.log.Error().Err(err).Str("reference", s.reference).Str("transaction", txID).Int("committed", len(committed)).Msg("reconciliation failed")
			return nil, &CommitError{Reference: s.reference, Committed: committed, Failed: txID, Err: err}
		}
		committed = append(committed, txID)
	}

	done := &Completion{Summary: sum, TransactionIDs: ids, Forced: forced, CompletedAt: s.now().UTC()}
	s.log.Info().Str("reference", s.reference).Int("transactions", len(ids)).Bool("forced", forced).Msg("reconciliation completed")
	s.clear()
	return done, nil
}

// Reset discards the session without writing anything.
func (s *Session) Reset() {
	if s.step == StepSelecting {
		s.log.Info().Str("reference", s.reference).Int("selected", len(s.selected)).Msg("reconciliation reset")
	}
	s.clear()
}

func (s *Session) clear() {
	s.step = StepSetup
	s.reference = ""
	s.accountID = ""
	s.statementTotal = decimal.Zero
	s.selected = make(map[string]struct{})
	s.running = decimal.Zero
}
