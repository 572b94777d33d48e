package reconcile

import (
	"errors"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/model"
)

type memRepo struct {
	txns      map[string]model.LedgerTransaction
	failOn    map[string]error
	reconcile []string
}

func newMemRepo(txns ...model.LedgerTransaction) *memRepo {
	r := &memRepo{txns: make(map[string]model.LedgerTransaction), failOn: make(map[string]error)}
	for _, tx := range txns {
		r.txns[tx.ID] = tx
	}
	return r
}

func (r *memRepo) Get(txID string) (model.LedgerTransaction, error) {
	tx, ok := r.txns[txID]
	if !ok {
		return model.LedgerTransaction{}, ledger.ErrNotFound
	}
	return tx, nil
}

func (r *memRepo) ByAccount(accountID string) ([]model.LedgerTransaction, error) {
	var out []model.LedgerTransaction
	for _, tx := range r.txns {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) Unreconciled(accountID string) ([]model.LedgerTransaction, error) {
	all, _ := r.ByAccount(accountID)
	var out []model.LedgerTransaction
	for _, tx := range all {
		if !tx.IsReconciled() {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memRepo) Reconcile(txID, reference string) (model.LedgerTransaction, error) {
	r.reconcile = append(r.reconcile, txID)
	if err := r.failOn[txID]; err != nil {
		return model.LedgerTransaction{}, err
	}
	tx := r.txns[txID]
	tx.ReconciliationReference = reference
	r.txns[txID] = tx
	return tx, nil
}

func tx(txID, date, amount, account string) model.LedgerTransaction {
	return model.LedgerTransaction{ID: txID, Date: date, Description: txID, Amount: decimal.RequireFromString(amount), AccountID: account}
}

type accountSet map[string]bool

func (a accountSet) Exists(accountID string) bool { return a[accountID] }

func started(t *testing.T, repo Repository, total string) *Session {
	t.Helper()
	s := NewSession(repo, Options{Now: func() time.Time { return time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC) }})
	require.NoError(t, s.Start("JAN-2025", total, "checking"))
	return s
}

func TestStart_Validation(t *testing.T) {
	s := NewSession(newMemRepo(), Options{Accounts: accountSet{"checking": true}})

	err := s.Start(" ", "abc", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference is required")
	assert.Contains(t, err.Error(), "account is required")
	assert.Contains(t, err.Error(), `statement total "abc" is not a number`)
	assert.Equal(t, StepSetup, s.Step())

	err = s.Start("REF", "10", "amex")
	assert.EqualError(t, err, `account "amex" does not exist`)

	require.NoError(t, s.Start("REF", "1,234.50", "checking"))
	assert.Equal(t, StepSelecting, s.Step())
	sum := s.Summary()
	assert.Equal(t, "1234.5", sum.StatementTotal.String())
	assert.True(t, sum.RunningTotal.IsZero())
	assert.Equal(t, 0, sum.Selected)

	assert.Error(t, s.Start("REF", "1", "checking"), "only from setup")
}

func TestToggle_TwiceRestoresSelection(t *testing.T) {
	s := started(t, newMemRepo(tx("a", "2025-01-02", "-40", "checking")), "0")

	require.NoError(t, s.Toggle("a"))
	assert.True(t, s.IsSelected("a"))
	assert.Equal(t, "-40", s.Summary().RunningTotal.String())

	require.NoError(t, s.Toggle("a"))
	assert.False(t, s.IsSelected("a"))
	assert.True(t, s.Summary().RunningTotal.IsZero())
	assert.Empty(t, s.Selected())
}

func TestToggle_Rejections(t *testing.T) {
	done := tx("done", "2025-01-01", "5", "checking")
	done.ReconciliationReference = "DEC-2024"
	repo := newMemRepo(done, tx("sav", "2025-01-01", "5", "savings"))
	s := started(t, repo, "0")

	assert.ErrorIs(t, s.Toggle("done"), ErrAlreadyReconciled)
	assert.ErrorIs(t, s.Toggle("sav"), ErrOtherAccount)
	assert.ErrorIs(t, s.Toggle("missing"), ledger.ErrNotFound)
	assert.Empty(t, s.Selected())

	fresh := NewSession(repo, Options{})
	assert.Error(t, fresh.Toggle("sav"), "toggle before start")
}

func TestToggle_RunningTotalReadsFresh(t *testing.T) {
	repo := newMemRepo(tx("a", "2025-01-02", "10", "checking"), tx("b", "2025-01-03", "5", "checking"))
	s := started(t, repo, "0")

	require.NoError(t, s.Toggle("a"))
	repo.txns["a"] = tx("a", "2025-01-02", "12.50", "checking")
	require.NoError(t, s.Toggle("b"))
	assert.Equal(t, "17.5", s.Summary().RunningTotal.String())
}

func TestToggle_RemovesVanishedTransaction(t *testing.T) {
	repo := newMemRepo(tx("a", "2025-01-02", "10", "checking"), tx("b", "2025-01-03", "5", "checking"))
	s := started(t, repo, "5")
	require.NoError(t, s.Toggle("a"))
	require.NoError(t, s.Toggle("b"))

	delete(repo.txns, "a")
	_, err := s.Complete(nil)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	require.NoError(t, s.Toggle("a"), "deselecting a deleted transaction")
	assert.False(t, s.IsSelected("a"))
	assert.Equal(t, "5", s.Summary().RunningTotal.String())

	done, err := s.Complete(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, done.TransactionIDs)
}

func TestComplete_WithinEpsilonNeedsNoConfirmation(t *testing.T) {
	repo := newMemRepo(tx("a", "2025-01-02", "60", "checking"), tx("b", "2025-01-03", "40", "checking"))
	s := started(t, repo, "99.995")
	require.NoError(t, s.Toggle("b"))
	require.NoError(t, s.Toggle("a"))

	done, err := s.Complete(nil)
	require.NoError(t, err)
	assert.True(t, done.Balanced)
	assert.False(t, done.Forced)
	assert.Equal(t, "0.005", done.Difference.String())
	assert.Equal(t, []string{"a", "b"}, done.TransactionIDs)
	assert.Equal(t, []string{"a", "b"}, repo.reconcile, "committed in sorted order")
	assert.Equal(t, "JAN-2025", repo.txns["a"].ReconciliationReference)

	assert.Equal(t, StepSetup, s.Step())
	after := s.Summary()
	assert.Empty(t, after.Reference)
	assert.Equal(t, 0, after.Selected)
	assert.True(t, after.RunningTotal.IsZero())
}

func TestComplete_ImbalanceNeedsConfirmation(t *testing.T) {
	repo := newMemRepo(tx("a", "2025-01-02", "150", "checking"))
	s := started(t, repo, "100")
	require.NoError(t, s.Toggle("a"))

	_, err := s.Complete(nil)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	var asked Summary
	_, err = s.Complete(func(sum Summary) bool { asked = sum; return false })
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Equal(t, "50", asked.Difference.String())
	assert.False(t, asked.Balanced)

	assert.Equal(t, StepSelecting, s.Step(), "declined completion keeps the session")
	assert.True(t, s.IsSelected("a"))
	assert.Empty(t, repo.reconcile)

	done, err := s.Complete(func(Summary) bool { return true })
	require.NoError(t, err)
	assert.True(t, done.Forced)
	assert.Equal(t, time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC), done.CompletedAt)
	assert.True(t, repo.txns["a"].IsReconciled())
}

func TestComplete_EmptySelection(t *testing.T) {
	s := started(t, newMemRepo(), "0")
	_, err := s.Complete(func(Summary) bool { return true })
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, StepSelecting, s.Step())
}

func TestComplete_FailureKeepsStateAndRetries(t *testing.T) {
	repo := newMemRepo(
		tx("a", "2025-01-02", "1", "checking"),
		tx("b", "2025-01-03", "2", "checking"),
		tx("c", "2025-01-04", "3", "checking"),
	)
	s := started(t, repo, "6")
	for _, txID := range []string{"c", "a", "b"} {
		require.NoError(t, s.Toggle(txID))
	}

	repo.failOn["b"] = errors.New("disk full")
	_, err := s.Complete(nil)
	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"a"}, ce.Committed)
	assert.Equal(t, "b", ce.Failed)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, StepSelecting, s.Step())
	assert.Equal(t, []string{"a", "b", "c"}, s.Selected())
	assert.True(t, repo.txns["a"].IsReconciled(), "no rollback")
	assert.False(t, repo.txns["c"].IsReconciled())

	delete(repo.failOn, "b")
	done, err := s.Complete(nil)
	require.NoError(t, err)
	assert.Len(t, done.TransactionIDs, 3)
	assert.Equal(t, []string{"a", "b", "b", "c"}, repo.reconcile, "a is not reconciled twice")
}

func TestReset(t *testing.T) {
	repo := newMemRepo(tx("a", "2025-01-02", "1", "checking"))
	s := started(t, repo, "1")
	require.NoError(t, s.Toggle("a"))

	s.Reset()
	assert.Equal(t, StepSetup, s.Step())
	assert.Empty(t, s.Selected())
	assert.Empty(t, repo.reconcile)
	assert.False(t, repo.txns["a"].IsReconciled())
}

func TestCandidates(t *testing.T) {
	done := tx("x", "2025-01-01", "5", "checking")
	done.ReconciliationReference = "DEC"
	repo := newMemRepo(tx("b", "2025-01-09", "1", "checking"), tx("a", "2025-01-10", "1", "checking"), done, tx("s", "2025-01-01", "1", "savings"))
	s := started(t, repo, "0")

	open, err := s.Candidates(false)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "b", open[0].ID)

	all, err := s.Candidates(true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "x", all[0].ID)

	savings, err := Candidates(repo, "savings", false)
	require.NoError(t, err)
	require.Len(t, savings, 1)
	assert.Equal(t, "s", savings[0].ID)

	_, err = NewSession(repo, Options{}).Candidates(false)
	assert.Error(t, err, "a session needs an account first")
}

func TestSession_WithLedgerRepository(t *testing.T) {
	repo := ledger.NewRepository(t.TempDir())
	added, err := repo.AddAll([]ledger.NewTransaction{
		{Date: "2025-01-03", Description: "GITHUB", Amount: decimal.RequireFromString("-4"), AccountID: "checking"},
		{Date: "2025-01-10", Description: "ACME", Amount: decimal.RequireFromString("3500"), AccountID: "checking"},
	})
	require.NoError(t, err)

	s := started(t, repo, "3496")
	for _, a := range added {
		require.NoError(t, s.Toggle(a.ID))
	}
	_, err = s.Complete(nil)
	require.NoError(t, err)

	open, err := repo.Unreconciled("checking")
	require.NoError(t, err)
	assert.Empty(t, open)

	got, err := repo.Get(added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "JAN-2025", got.ReconciliationReference)
}

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^REC-20250131-[0-9a-f]{6}$`), ref)
	assert.NotEqual(t, ref, GenerateReference(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
}
