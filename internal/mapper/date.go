package mapper

import (
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// isoLayout is the only date form that leaves the mapper.
const isoLayout = "2006-01-02"

// fallbackLayouts are tried in order for YYYY-MM-DD and unrecognised formats.
var fallbackLayouts = []string{
	isoLayout,
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// ParseDate converts a bank date cell into YYYY-MM-DD, or "" when it cannot be
// parsed. The result is built from calendar fields only, so the machine's
// timezone never shifts the day.
func ParseDate(raw string, format model.DateFormat) string {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	switch format {
	case model.DateFormatMDY:
		return fromParts(s, 0, 1)
	case model.DateFormatDMY:
		return fromParts(s, 1, 0)
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoLayout)
		}
	}
	return ""
}

// fromParts builds a date from a slash separated cell with month and day at
// the given positions and the year last. Out of range parts roll over into
// the next month or year.
func fromParts(s string, monthPos, dayPos int) string {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ""
	}

	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return ""
		}
		n[i] = v
	}

	year := n[2]
	if year < 100 && len(strings.TrimSpace(parts[2])) <= 2 {
		year += 2000
	}

	t := time.Date(year, time.Month(n[monthPos]), n[dayPos], 0, 0, 0, 0, time.UTC)
	if t.Year() < 1 || t.Year() > 9999 {
		return ""
	}
	return t.Format(isoLayout)
}
