package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/banks"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/currency"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/sheet"
)

var runStamp = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func currencies(t *testing.T) *currency.Registry {
	t.Helper()
	r, err := currency.NewRegistry(config.Default("Test", "USD").Currency)
	require.NoError(t, err)
	return r
}

func fixture(t *testing.T, name string) InputFile {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return InputFile{Name: name, Reader: bytes.NewReader(data)}
}

func chaseRules() []model.ProcessingRule {
	return []model.ProcessingRule{
		{
			ID: "r3", BankConfigID: "chase-checking", Name: "Client payments", Type: model.RuleFieldValueSet, Active: true, RuleOrder: 3,
			Conditions: []model.RuleCondition{{Field: "transactionGroup", Operator: "equals", Value: "ACH_CREDIT"}},
			Actions: []model.RuleAction{
				{Type: model.ActionSetField, Field: "subcategoryId", Value: "consulting"},
				{Type: model.ActionSetField, Field: "payer", Value: "Acme"},
			},
		},
		{
			ID: "r1", BankConfigID: "chase-checking", Name: "Skip transfers", Type: model.RuleRowIgnore, Active: true, RuleOrder: 1,
			Conditions: []model.RuleCondition{{Field: "description", Operator: "startsWith", Value: "ONLINE TRANSFER"}},
		},
		{
			ID: "r2", BankConfigID: "chase-checking", Name: "GitHub", Type: model.RuleFieldValueSet, Active: true, RuleOrder: 2,
			Conditions: []model.RuleCondition{{Field: "description", Operator: "contains", Value: "GITHUB"}},
			Actions: []model.RuleAction{
				{Type: model.ActionSetField, Field: "subcategoryId", Value: "software"},
				{Type: model.ActionSetField, Field: "payee", Value: "GitHub"},
			},
		},
	}
}

func TestProcess_Chase(t *testing.T) {
	existing := []model.LedgerTransaction{
		{ID: "txn_old", Date: "2025-01-22", Description: "STAPLES 00123", Amount: decimal.RequireFromString("-37.18"), AccountID: "checking"},
	}

	var logs bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&logs, "debug"))

	p := NewPipeline(banks.ChaseChecking(), chaseRules(), existing, currencies(t), Options{
		Accounts: mockAccounts{"checking": true},
		Now:      func() time.Time { return runStamp },
	})
	res, err := p.Process(ctx, []InputFile{fixture(t, "chase_checking.csv")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Empty(t, res.FileErrors)
	assert.Empty(t, res.Hints)
	assert.Equal(t, Stats{
		Files:            1,
		TotalParsed:      6,
		Valid:            5,
		WithRules:        2,
		RuleApplications: 2,
		Skipped:          1,
		Duplicates:       1,
		Ready:            2,
		Errors:           3,
	}, res.Stats)

	require.Len(t, res.Parsed, 5)
	assert.Equal(t, res.Parsed, res.Valid)
	assert.Equal(t, res.Stats.TotalParsed-res.Stats.Skipped-res.Stats.Valid, 0)

	github := res.Parsed[0]
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", github.Description)
	assert.Equal(t, "2025-01-03", github.Date)
	assert.Equal(t, model.ImportReady, github.Status)
	assert.Equal(t, []model.AppliedRule{{ID: "r2", Name: "GitHub"}}, github.RulesApplied)
	assert.Equal(t, "chase_checking.csv", github.FileName)
	assert.Equal(t, "import_1738368000000_0_0", github.ID)

	acme := res.Parsed[2]
	assert.Equal(t, "", acme.TransactionType)
	assert.Equal(t, model.ImportReady, acme.Status)
	assert.Equal(t, 3, acme.RowIndex, "row index counts the skipped row")

	check := res.Parsed[3]
	assert.Equal(t, "1187", check.Reference)
	assert.False(t, check.IsDuplicate)

	staples := res.Parsed[4]
	assert.True(t, staples.IsDuplicate)
	assert.Equal(t, model.ImportError, staples.Status)
	assert.Contains(t, staples.Validation.Warnings, duplicateWarning)

	assert.Contains(t, logs.String(), `"format":"csv"`)
	assert.Contains(t, logs.String(), "row skipped by rule")
	assert.Contains(t, logs.String(), "import finished")
}

func TestProcess_UnmappedTypeStaysEmpty(t *testing.T) {
	bank := model.BankConfiguration{
		ID: "payroll",
		FieldMapping: model.FieldMapping{
			model.FieldDate:          "Date",
			model.FieldDescription:   "Description",
			model.FieldAmount:        "Amount",
			model.FieldSubcategoryID: "Category",
			model.FieldAccount:       "Account",
		},
		Settings: model.BankSettings{HasHeaders: true, DateFormat: model.DateFormatISO, AmountHandling: model.AmountSigned},
	}
	csv := "Date,Description,Amount,Category,Account\n2025-01-02,Salary January,100.00,salary,checking\n"

	p := NewPipeline(bank, nil, nil, currencies(t), Options{Accounts: mockAccounts{"checking": true}})
	res, err := p.Process(context.Background(), []InputFile{{Name: "payroll.csv", Reader: strings.NewReader(csv)}})
	require.NoError(t, err)
	require.Len(t, res.Valid, 1)

	salary := res.Valid[0]
	assert.Equal(t, "", salary.TransactionType)
	assert.Empty(t, salary.Validation.Warnings)
	assert.Equal(t, model.ImportReady, salary.Status)
	assert.True(t, CommitPolicy{}.Accepts(salary))
}

func TestProcess_SeparateDebitCredit(t *testing.T) {
	p := NewPipeline(banks.GenericDebitCredit(), nil, nil, currencies(t), Options{})
	res, err := p.Process(context.Background(), []InputFile{fixture(t, "generic_debit_credit.csv")})
	require.NoError(t, err)
	require.Len(t, res.Valid, 3)

	want := []string{"-18.5", "1200", "-2"}
	for i, tx := range res.Valid {
		assert.Equal(t, want[i], tx.Amount.Decimal.String())
	}
	assert.Equal(t, "INV-77", res.Valid[1].Reference)
	assert.Equal(t, "Roastery", res.Valid[0].Payee)
}

func TestProcess_FileErrorsDoNotStopTheRun(t *testing.T) {
	var progress [][2]int
	p := NewPipeline(banks.ChaseChecking(), nil, nil, currencies(t), Options{
		Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})

	res, err := p.Process(context.Background(), []InputFile{
		{Name: "empty.csv", Reader: strings.NewReader("")},
		{Name: "statement.pdf", Reader: strings.NewReader("%PDF")},
		fixture(t, "chase_checking.csv"),
	})
	require.NoError(t, err)

	require.Len(t, res.FileErrors, 2)
	assert.Equal(t, "empty.csv: no data found", res.FileErrors[0].Error())
	assert.True(t, errors.Is(res.FileErrors[0], sheet.ErrNoData))
	assert.Equal(t, `statement.pdf: unsupported file type ".pdf"`, res.FileErrors[1].Error())

	assert.Equal(t, 3, res.Stats.Files)
	assert.Equal(t, 6, res.Stats.TotalParsed)
	assert.Len(t, res.Valid, 6)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	for _, tx := range res.Parsed {
		parts := strings.Split(tx.ID, "_")
		require.Len(t, parts, 4)
		assert.Equal(t, "2", parts[2], "file index of %s", tx.ID)
	}
}

func TestProcess_NoValidTransactions(t *testing.T) {
	bank := banks.GenericDebitCredit()
	bank.Settings.DateFormat = model.DateFormatMDY
	bank.FieldMapping[model.FieldDescription] = "Descriptoin"

	p := NewPipeline(bank, nil, nil, currencies(t), Options{})
	res, err := p.Process(context.Background(), []InputFile{fixture(t, "generic_debit_credit.csv")})
	require.NoError(t, err, "no valid rows is an outcome, not an error")

	assert.Equal(t, OutcomeNoValid, res.Outcome)
	assert.Empty(t, res.Valid)
	assert.Len(t, res.Parsed, 3)
	assert.Equal(t, 3, res.Stats.TotalParsed-res.Stats.Skipped-res.Stats.Valid)
	assert.Equal(t, 3, res.Stats.Errors)

	hints := strings.Join(res.Hints, "\n")
	assert.Contains(t, hints, `column "Descriptoin" mapped to description is not in the file; did you mean "Description"?`)
	assert.Contains(t, hints, `3 rows have dates that do not match the MM/DD/YYYY format (for example "2025-01-03", "2025-01-04", "2025-01-05")`)
}

func TestProcess_AllRowsIgnored(t *testing.T) {
	ignoreAll := []model.ProcessingRule{{ID: "all", Name: "everything", Type: model.RuleRowIgnore, Active: true}}
	p := NewPipeline(banks.ChaseChecking(), ignoreAll, nil, currencies(t), Options{})
	res, err := p.Process(context.Background(), []InputFile{fixture(t, "chase_checking.csv")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoValid, res.Outcome)
	assert.Equal(t, 6, res.Stats.Skipped)
	assert.Empty(t, res.Parsed)
	assert.Contains(t, res.Hints, "all 6 rows were skipped by ROW_IGNORE rules")
}

func TestProcess_InvalidBankIsDiagnostic(t *testing.T) {
	bank := banks.GenericDebitCredit()
	bank.Settings.DateFormat = "DD.MM.YYYY"
	delete(bank.FieldMapping, model.FieldCredit)

	_, err := NewPipeline(bank, nil, nil, currencies(t), Options{}).Process(context.Background(), nil)
	var d *Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, `bank configuration "generic-debit-credit" is invalid`, d.Summary)
	assert.Len(t, d.Details, 2)
	assert.Equal(t, 2, strings.Count(err.Error(), "\n  - "))
}

func TestProcess_InvalidRulesIsDiagnostic(t *testing.T) {
	bad := []model.ProcessingRule{{ID: "x", Name: "bad", Type: model.RuleRowIgnore, Active: true,
		Conditions: []model.RuleCondition{{Field: "amount", Operator: "approximately", Value: "1"}}}}

	_, err := NewPipeline(banks.ChaseChecking(), bad, nil, currencies(t), Options{}).Process(context.Background(), nil)
	var d *Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Contains(t, err.Error(), "unknown operator")
}

type panicReader struct{}

func (panicReader) Format() string { return "boom" }
func (panicReader) Read(io.Reader, sheet.Options) ([]model.RawRow, error) {
	panic("reader exploded")
}

func TestProcess_PanicIsDiagnostic(t *testing.T) {
	readers := sheet.NewRegistry()
	readers.Register(panicReader{}, "boom")

	res, err := NewPipeline(banks.ChaseChecking(), nil, nil, currencies(t), Options{Readers: readers}).
		Process(context.Background(), []InputFile{{Name: "x.boom", Reader: strings.NewReader("")}})
	assert.Nil(t, res)
	var d *Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Contains(t, err.Error(), "reader exploded")
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(banks.ChaseChecking(), nil, nil, currencies(t), Options{}).
		Process(ctx, []InputFile{fixture(t, "chase_checking.csv")})
	assert.True(t, errors.Is(err, context.Canceled))
}
