package mapper

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/currency"
	"github.com/cleared-dev/tally/internal/model"
)

var stamp = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func registry(t *testing.T) *currency.Registry {
	t.Helper()
	r, err := currency.NewRegistry(config.Default("Test", "USD").Currency)
	require.NoError(t, err)
	return r
}

func row(pairs ...string) model.RawRow {
	var r model.RawRow
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Columns = append(r.Columns, pairs[i])
		r.Values = append(r.Values, pairs[i+1])
	}
	return r
}

func separateBank() model.BankConfiguration {
	return model.BankConfiguration{
		ID:   "generic",
		Name: "Generic",
		FieldMapping: model.FieldMapping{
			model.FieldDate:        "Date",
			model.FieldDescription: "Description",
			model.FieldDebit:       "Debit",
			model.FieldCredit:      "Credit",
			model.FieldReference:   "Ref",
		},
		Settings: model.BankSettings{
			HasHeaders:     true,
			DateFormat:     model.DateFormatMDY,
			AmountHandling: model.AmountSeparate,
			AccountID:      "chk",
		},
	}
}

func signedBank() model.BankConfiguration {
	return model.BankConfiguration{
		ID: "chase",
		FieldMapping: model.FieldMapping{
			model.FieldDate:        "Posting Date",
			model.FieldDescription: "Description",
			model.FieldAmount:      "Amount",
			model.FieldTag:         "Tags",
			model.FieldAccount:     "Account",
		},
		Settings: model.BankSettings{
			DateFormat:     model.DateFormatISO,
			AmountHandling: model.AmountSigned,
			Currency:       "eur",
		},
	}
}

func TestMapRow_SeparateDebitCredit(t *testing.T) {
	m := New(separateBank(), registry(t), stamp)

	debit := m.MapRow(row("Date", "01/03/2025", "Description", "GITHUB", "Debit", "100.00", "Credit", "", "Ref", " r1 "), 0, 0)
	require.True(t, debit.Amount.Valid)
	assert.True(t, debit.Amount.Decimal.Equal(decimal.NewFromInt(-100)), "got %s", debit.Amount.Decimal)
	assert.Equal(t, "", debit.TransactionType, "an unmapped type stays empty")

	credit := m.MapRow(row("Date", "01/05/2025", "Description", "ACME", "Debit", "", "Credit", "50.00", "Ref", ""), 0, 1)
	require.True(t, credit.Amount.Valid)
	assert.True(t, credit.Amount.Decimal.Equal(decimal.NewFromInt(50)), "got %s", credit.Amount.Decimal)
	assert.Equal(t, "", credit.TransactionType)

	assert.Equal(t, "2025-01-03", debit.Date)
	assert.Equal(t, "r1", debit.Reference)
	assert.Equal(t, "chk", debit.AccountID, "falls back to settings account")
	assert.Equal(t, "usd", debit.CurrencyID)
	assert.Equal(t, "import_1736899200000_0_1", credit.ID)
	assert.Equal(t, 1, credit.RowIndex)
}

func TestMapRow_Signed(t *testing.T) {
	m := New(signedBank(), registry(t), stamp)

	tx := m.MapRow(row("Posting Date", "2025-02-01", "Description", "  AWS  ", "Amount", "$-1,234.50", "Tags", "cloud; infra", "Account", "biz"), 2, 7)
	require.True(t, tx.Amount.Valid)
	assert.Equal(t, "-1234.5", tx.Amount.Decimal.String())
	assert.Equal(t, "AWS", tx.Description)
	assert.Equal(t, "eur", tx.CurrencyID)
	assert.Equal(t, "biz", tx.AccountID)
	assert.Equal(t, []string{"cloud", "infra"}, tx.Tags)
	assert.Equal(t, "", tx.Payee, "unmapped fields are empty")

	bad := m.MapRow(row("Posting Date", "2025-02-01", "Description", "X", "Amount", "n/a"), 2, 8)
	assert.False(t, bad.Amount.Valid)
	assert.Equal(t, "", bad.TransactionType)
}

func TestMapRow_UnknownCurrencyFallsBackToBase(t *testing.T) {
	bank := signedBank()
	bank.Settings.Currency = "XTS"
	tx := New(bank, registry(t), stamp).MapRow(row("Amount", "1"), 0, 0)
	assert.Equal(t, "usd", tx.CurrencyID)
}

func TestMapRow_SeparateUnparseableIsZero(t *testing.T) {
	tx := New(separateBank(), registry(t), stamp).MapRow(row("Debit", "abc", "Credit", "-"), 0, 0)
	require.True(t, tx.Amount.Valid)
	assert.True(t, tx.Amount.Decimal.IsZero())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw    string
		format model.DateFormat
		want   string
	}{
		{"01/03/2025", model.DateFormatMDY, "2025-01-03"},
		{`"1/3/2025"`, model.DateFormatMDY, "2025-01-03"},
		{"03/01/2025", model.DateFormatDMY, "2025-01-03"},
		{"31/12/25", model.DateFormatDMY, "2025-12-31"},
		{"02/30/2024", model.DateFormatMDY, "2024-03-01"},
		{"13/01/2025", model.DateFormatMDY, "2026-01-01"},
		{"2025-01-03", model.DateFormatISO, "2025-01-03"},
		{"2025-01-03T23:30:00-05:00", model.DateFormatISO, "2025-01-03"},
		{"Jan 3, 2025", "", "2025-01-03"},
		{"2025-01-03", model.DateFormatMDY, ""},
		{"yesterday", model.DateFormatISO, ""},
		{"  ", model.DateFormatISO, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDate(tt.raw, tt.format), "ParseDate(%q, %q)", tt.raw, tt.format)
	}
}

func TestParseDate_IndependentOfLocalZone(t *testing.T) {
	iso := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	zones := []string{"UTC", "Pacific/Kiritimati", "Pacific/Pago_Pago", "America/Los_Angeles"}

	orig := time.Local
	t.Cleanup(func() { time.Local = orig })

	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Skipf("zone database unavailable: %v", err)
		}
		time.Local = loc
		t.Setenv("TZ", name)

		for _, f := range []model.DateFormat{model.DateFormatMDY, model.DateFormatDMY, model.DateFormatISO} {
			raw := map[model.DateFormat]string{
				model.DateFormatMDY: "12/31/2024",
				model.DateFormatDMY: "31/12/2024",
				model.DateFormatISO: "2024-12-31",
			}[f]
			got := ParseDate(raw, f)
			assert.Regexp(t, iso, got)
			assert.Equal(t, "2024-12-31", got, "zone %s format %s", name, f)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"100.00", "100", true},
		{"-4.00", "-4", true},
		{"$1,234.56", "1234.56", true},
		{" 12 USD", "12", true},
		{"", "0", false},
		{"--", "0", false},
		{"-", "0", false},
		{"1.2.3", "1.2", true},
		{"100.00-", "100", true},
		{"1.234.56", "1.234", true},
		{"12-34", "12", true},
		{"-.5", "-0.5", true},
		{"7.", "7", true},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseAmount(%q)", tt.in)
		assert.Equal(t, tt.want, got.String(), "ParseAmount(%q)", tt.in)
	}
}
