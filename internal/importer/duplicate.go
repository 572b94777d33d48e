package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// amountEpsilon is the largest difference two amounts may have and still be
// considered equal.
var amountEpsilon = decimal.RequireFromString("0.01")

const descriptionPrefixLen = 10

// IsDuplicate reports whether candidate likely duplicates an existing ledger
// transaction. A candidate with a reference is matched on reference alone,
// case-insensitively. Without one, a match needs an amount within 0.01, the
// same date and one description containing the first ten characters of the
// other.
//
// Blank descriptions on either side never match. Reordered or abbreviated
// descriptions are not caught.
func IsDuplicate(candidate model.ImportTransaction, existing []model.LedgerTransaction) bool {
	if ref := strings.TrimSpace(candidate.Reference); ref != "" {
		for _, e := range existing {
			if strings.EqualFold(strings.TrimSpace(e.Reference), ref) {
				return true
			}
		}
		return false
	}

	candDesc := strings.ToLower(strings.TrimSpace(candidate.Description))
	if !candidate.Amount.Valid || candDesc == "" {
		return false
	}

	for _, e := range existing {
		if e.Amount.Sub(candidate.Amount.Decimal).Abs().GreaterThanOrEqual(amountEpsilon) {
			continue
		}
		if e.Date != candidate.Date {
			continue
		}
		existDesc := strings.ToLower(strings.TrimSpace(e.Description))
		if existDesc == "" {
			continue
		}
		if strings.Contains(existDesc, prefix(candDesc)) || strings.Contains(candDesc, prefix(existDesc)) {
			return true
		}
	}
	return false
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) > descriptionPrefixLen {
		r = r[:descriptionPrefixLen]
	}
	return string(r)
}
