package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/cleared-dev/tally/internal/model"
)

// CSVReader reads delimited text exports.
type CSVReader struct{}

// Format returns the reader name.
func (c *CSVReader) Format() string { return "csv" }

// Read decodes r using opts.Encoding and splits it into raw rows.
func (c *CSVReader) Read(r io.Reader, opts Options) ([]model.RawRow, error) {
	decoded, err := decode(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	delim, err := delimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return buildRows(records, opts.HasHeaders)
}

func decode(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func delimiter(s string) (rune, error) {
	switch {
	case s == "":
		return ',', nil
	case s == `\t` || strings.EqualFold(s, "tab"):
		return '\t', nil
	}
	d, size := utf8.DecodeRuneInString(s)
	if size != len(s) || d == utf8.RuneError || d == '"' || d == '\r' || d == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return d, nil
}
