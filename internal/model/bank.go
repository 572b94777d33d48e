package model

import (
	"errors"
	"fmt"
	"sort"
)

// DateFormat is the layout bank exports write dates in.
type DateFormat string

const (
	DateFormatMDY DateFormat = "MM/DD/YYYY"
	DateFormatDMY DateFormat = "DD/MM/YYYY"
	DateFormatISO DateFormat = "YYYY-MM-DD"
)

// AmountHandling selects how amounts are laid out in a bank export.
type AmountHandling string

const (
	// AmountSeparate reads unsigned debit and credit columns.
	AmountSeparate AmountHandling = "separate"
	// AmountSigned reads one signed amount column.
	AmountSigned AmountHandling = "signed"
)

// BankSettings holds the parsing settings of a bank export format.
type BankSettings struct {
	HasHeaders     bool           `yaml:"has_headers"`
	Delimiter      string         `yaml:"delimiter,omitempty"`
	Encoding       string         `yaml:"encoding,omitempty"`
	DateFormat     DateFormat     `yaml:"date_format"`
	AmountHandling AmountHandling `yaml:"amount_handling"`
	Currency       string         `yaml:"currency,omitempty"`
	AccountID      string         `yaml:"account_id,omitempty"`
}

// BankConfiguration describes how one bank's export maps onto transactions.
type BankConfiguration struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Type         string       `yaml:"type,omitempty"`
	FieldMapping FieldMapping `yaml:"field_mapping"`
	Settings     BankSettings `yaml:"settings"`
}

// Validate reports every problem that would stop an import from mapping rows.
func (b BankConfiguration) Validate() error {
	var errs []error
	if b.ID == "" {
		errs = append(errs, errors.New("bank configuration id is empty"))
	}

	switch b.Settings.DateFormat {
	case DateFormatMDY, DateFormatDMY, DateFormatISO:
	default:
		errs = append(errs, fmt.Errorf("unknown date format %q", b.Settings.DateFormat))
	}

	for _, f := range []Field{FieldDate, FieldDescription} {
		if _, ok := b.FieldMapping.Column(f); !ok {
			errs = append(errs, fmt.Errorf("no column mapped to %s", f))
		}
	}

	switch b.Settings.AmountHandling {
	case AmountSigned:
		if _, ok := b.FieldMapping.Column(FieldAmount); !ok {
			errs = append(errs, errors.New("signed amounts need a column mapped to amount"))
		}
	case AmountSeparate:
		_, hasDebit := b.FieldMapping.Column(FieldDebit)
		_, hasCredit := b.FieldMapping.Column(FieldCredit)
		if !hasDebit || !hasCredit {
			errs = append(errs, errors.New("separate amounts need columns mapped to debit and credit"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown amount handling %q", b.Settings.AmountHandling))
	}

	var unknown []string
	for f := range b.FieldMapping {
		if !f.IsMappingKey() {
			unknown = append(unknown, string(f))
		}
	}
	sort.Strings(unknown)
	for _, f := range unknown {
		errs = append(errs, fmt.Errorf("%q cannot be mapped from a column", f))
	}

	return errors.Join(errs...)
}
