// Package sheet turns bank export files into raw rows.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrNoData is returned when a file has no data rows.
var ErrNoData = errors.New("no data found")

// Options controls how a file is read.
type Options struct {
	HasHeaders bool
	Delimiter  string // single character, "tab" or "\t"; default ","
	Encoding   string // WHATWG label, e.g. "windows-1252"; default UTF-8
}

// OptionsFor returns reading options from bank settings.
func OptionsFor(s model.BankSettings) Options {
	return Options{HasHeaders: s.HasHeaders, Delimiter: s.Delimiter, Encoding: s.Encoding}
}

// Reader reads one file format into raw rows.
type Reader interface {
	Read(r io.Reader, opts Options) ([]model.RawRow, error)
	Format() string
}

// Registry maps file extensions to readers.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader for one or more extensions. Panics on duplicates.
func (r *Registry) Register(rd Reader, extensions ...string) {
	for _, ext := range extensions {
		key := normalizeExt(ext)
		if _, ok := r.readers[key]; ok {
			panic("duplicate reader extension: " + key)
		}
		r.readers[key] = rd
	}
}

// Get returns the reader for an extension, or nil.
func (r *Registry) Get(ext string) Reader {
	return r.readers[normalizeExt(ext)]
}

// ForFile returns the reader for a file name.
func (r *Registry) ForFile(name string) (Reader, error) {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".xls") {
		return nil, errors.New("legacy .xls workbooks are not supported, save as .xlsx or .csv")
	}
	rd := r.Get(ext)
	if rd == nil {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return rd, nil
}

// Supported reports whether a file name has a registered extension.
func (r *Registry) Supported(name string) bool {
	return r.Get(filepath.Ext(name)) != nil
}

// DefaultRegistry returns a registry with all built-in readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVReader{}, "csv", "txt", "tsv")
	r.Register(&XLSXReader{}, "xlsx")
	return r
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// buildRows turns records into raw rows. With headers the first record names
// the columns; without, columns are named by zero-based index. Blank lines are
// dropped.
func buildRows(records [][]string, hasHeaders bool) ([]model.RawRow, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	var columns []string
	data := records
	if hasHeaders {
		columns = make([]string, len(records[0]))
		for i, h := range records[0] {
			h = strings.TrimPrefix(h, "\ufeff")
			columns[i] = strings.TrimSpace(h)
		}
		data = records[1:]
	} else {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		columns = make([]string, width)
		for i := range columns {
			columns[i] = strconv.Itoa(i)
		}
	}

	var rows []model.RawRow
	for _, rec := range data {
		values := make([]string, len(columns))
		copy(values, rec)
		row := model.RawRow{Columns: columns, Values: values}
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}
