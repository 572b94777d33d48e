package model

import (
	"encoding/json"
	"strings"
)

// RawRow is one line of a bank export: column names in file order with the
// matching cell values.
type RawRow struct {
	Columns []string
	Values  []string
}

// Get returns the value in column. An exact header match wins; otherwise
// headers are compared trimmed and case-insensitively.
func (r RawRow) Get(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.value(i), true
		}
	}
	want := strings.TrimSpace(column)
	for i, c := range r.Columns {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return r.value(i), true
		}
	}
	return "", false
}

// Map returns the row as a column -> value map.
func (r RawRow) Map() map[string]string {
	m := make(map[string]string, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.value(i)
	}
	return m
}

// MarshalJSON encodes the row as an object keyed by column.
func (r RawRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// IsBlank reports whether every cell is empty.
func (r RawRow) IsBlank() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r RawRow) value(i int) string {
	if i < len(r.Values) {
		return r.Values[i]
	}
	return ""
}
