package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/cleared-dev/tally/internal/model"
)

const maxSamples = 3

// hints explains why a run produced no valid rows.
func (p *Pipeline) hints(results []fileResult, res *Result) []string {
	var out []string

	if n := len(res.FileErrors); n > 0 {
		out = append(out, fmt.Sprintf("%d of %d files could not be read", n, res.Stats.Files))
	}

	if res.Stats.TotalParsed > 0 && res.Stats.Skipped == res.Stats.TotalParsed {
		out = append(out, fmt.Sprintf("all %d rows were skipped by ROW_IGNORE rules", res.Stats.TotalParsed))
	}

	for _, fr := range results {
		if fr.err != nil {
			continue
		}
		out = append(out, p.missingColumns(fr)...)
	}

	var badDates, badAmounts []string
	undated, unpriced := 0, 0
	for _, tx := range res.Parsed {
		if tx.Date == "" {
			undated++
			if v := p.rawValue(tx, model.FieldDate); v != "" && len(badDates) < maxSamples {
				badDates = append(badDates, v)
			}
		}
		if !tx.Amount.Valid {
			unpriced++
			if v := p.rawValue(tx, model.FieldAmount); v != "" && len(badAmounts) < maxSamples {
				badAmounts = append(badAmounts, v)
			}
		}
	}
	if undated > 0 {
		hint := fmt.Sprintf("%d rows have dates that do not match the %s format", undated, p.bank.Settings.DateFormat)
		if len(badDates) > 0 {
			hint += fmt.Sprintf(" (for example %s)", quoteAll(badDates))
		}
		out = append(out, hint)
	}
	if unpriced > 0 {
		hint := fmt.Sprintf("%d rows have amounts that are not numbers", unpriced)
		if len(badAmounts) > 0 {
			hint += fmt.Sprintf(" (for example %s)", quoteAll(badAmounts))
		}
		out = append(out, hint)
	}

	if len(out) == 0 && res.Stats.TotalParsed == 0 {
		out = append(out, "the files contain no rows")
	}
	if len(out) == 0 {
		out = append(out, "check the field mapping: no row had a date, a description and an amount")
	}
	return out
}

// missingColumns reports mapped columns absent from a file's headers, with the
// closest header as a suggestion.
func (p *Pipeline) missingColumns(fr fileResult) []string {
	present := make(map[string]bool, len(fr.headers))
	for _, h := range fr.headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	fields := make([]string, 0, len(p.bank.FieldMapping))
	for f := range p.bank.FieldMapping {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	var out []string
	for _, name := range fields {
		col, ok := p.bank.FieldMapping.Column(model.Field(name))
		if !ok || present[strings.ToLower(strings.TrimSpace(col))] {
			continue
		}
		hint := fmt.Sprintf("%s: column %q mapped to %s is not in the file", fr.name, col, name)
		if s, ok := closest(col, fr.headers); ok {
			hint += fmt.Sprintf("; did you mean %q?", s)
		}
		out = append(out, hint)
	}
	return out
}

// closest returns the header nearest to col by edit distance, if it is near
// enough to be a plausible typo.
func closest(col string, headers []string) (string, bool) {
	want := []rune(strings.ToLower(strings.TrimSpace(col)))
	best, bestDist := "", -1
	for _, h := range headers {
		d := levenshtein.DistanceForStrings(want, []rune(strings.ToLower(strings.TrimSpace(h))), levenshtein.DefaultOptions)
		if bestDist < 0 || d < bestDist {
			best, bestDist = h, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(want)/3) {
		return "", false
	}
	return best, true
}

func (p *Pipeline) rawValue(tx model.ImportTransaction, f model.Field) string {
	cols := []model.Field{f}
	if f == model.FieldAmount && p.bank.Settings.AmountHandling == model.AmountSeparate {
		cols = []model.Field{model.FieldDebit, model.FieldCredit}
	}
	for _, c := range cols {
		col, ok := p.bank.FieldMapping.Column(c)
		if !ok {
			continue
		}
		if v, _ := tx.RawData.Get(col); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func quoteAll(vals []string) string {
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}
