package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/tally/internal/model"
)

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestIsDuplicate_Reference(t *testing.T) {
	existing := []model.LedgerTransaction{
		{ID: "txn_1", Date: "2025-01-03", Description: "GITHUB", Amount: decimal.RequireFromString("-4"), Reference: "REF1"},
	}

	cand := model.ImportTransaction{Date: "2024-06-30", Description: "something else", Amount: amount("999"), Reference: " ref1 "}
	assert.True(t, IsDuplicate(cand, existing), "reference matches regardless of amount and date")

	cand.Reference = "REF2"
	cand.Date, cand.Description, cand.Amount = "2025-01-03", "GITHUB", amount("-4")
	assert.False(t, IsDuplicate(cand, existing), "a non-matching reference does not fall back to the heuristic")
}

func TestIsDuplicate_Fallback(t *testing.T) {
	existing := []model.LedgerTransaction{
		{ID: "txn_1", Date: "2025-01-03", Description: "GITHUB *PRO SUBSCRIPTION", Amount: decimal.RequireFromString("-4.00")},
	}

	tests := []struct {
		name string
		cand model.ImportTransaction
		want bool
	}{
		{"exact", model.ImportTransaction{Date: "2025-01-03", Description: "GITHUB *PRO SUBSCRIPTION", Amount: amount("-4.00")}, true},
		{"within epsilon", model.ImportTransaction{Date: "2025-01-03", Description: "github *pro sub", Amount: amount("-4.009")}, true},
		{"at epsilon", model.ImportTransaction{Date: "2025-01-03", Description: "GITHUB *PRO SUBSCRIPTION", Amount: amount("-4.01")}, false},
		{"next day", model.ImportTransaction{Date: "2025-01-04", Description: "GITHUB *PRO SUBSCRIPTION", Amount: amount("-4.00")}, false},
		{"short existing prefix", model.ImportTransaction{Date: "2025-01-03", Description: "GITHUB *PRO SUBSCRIPTION RENEWAL", Amount: amount("-4")}, true},
		{"reordered", model.ImportTransaction{Date: "2025-01-03", Description: "PRO GITHUB SUB", Amount: amount("-4")}, false},
		{"nan amount", model.ImportTransaction{Date: "2025-01-03", Description: "GITHUB *PRO SUBSCRIPTION"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDuplicate(tt.cand, existing), tt.name)
	}
}

func TestIsDuplicate_ShortDescriptions(t *testing.T) {
	existing := []model.LedgerTransaction{
		{Date: "2025-01-03", Description: "ATM", Amount: decimal.RequireFromString("-20")},
	}
	cand := model.ImportTransaction{Date: "2025-01-03", Description: "ATM WITHDRAWAL 0042", Amount: amount("-20")}
	assert.True(t, IsDuplicate(cand, existing), "existing description is a prefix of the candidate")
	assert.False(t, IsDuplicate(cand, nil))

	cand.Description = "  "
	assert.False(t, IsDuplicate(cand, existing), "a blank description never matches")

	blankLedger := []model.LedgerTransaction{
		{Date: "2025-01-02", Description: "  ", Amount: decimal.RequireFromString("-4.50")},
	}
	coffee := model.ImportTransaction{Date: "2025-01-02", Description: "Coffee shop downtown", Amount: amount("-4.50")}
	assert.False(t, IsDuplicate(coffee, blankLedger), "a blank ledger description never matches")
}
