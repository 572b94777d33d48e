// Package mapper maps raw bank rows onto canonical import transactions.
package mapper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/currency"
	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// CurrencyResolver resolves ISO codes to currencies. *currency.Registry
// implements it.
type CurrencyResolver interface {
	Resolve(code string) (currency.Currency, bool)
	Base() currency.Currency
}

// Mapper maps rows of one bank's export. It is safe for concurrent use.
type Mapper struct {
	bank       model.BankConfiguration
	currencyID string
	stamp      time.Time
}

// New creates a Mapper for a bank configuration. stamp is embedded in the
// generated row ids so rows from one run share it.
func New(bank model.BankConfiguration, currencies CurrencyResolver, stamp time.Time) *Mapper {
	currencyID := currencies.Base().ID
	if c, ok := currencies.Resolve(bank.Settings.Currency); ok {
		currencyID = c.ID
	}
	return &Mapper{bank: bank, currencyID: currencyID, stamp: stamp}
}

// MapRow converts one raw row. It never fails: unparseable dates come back
// empty and unparseable signed amounts come back invalid, for the validator to
// report.
func (m *Mapper) MapRow(row model.RawRow, fileIndex, rowIndex int) model.ImportTransaction {
	tx := model.ImportTransaction{
		ID:                   id.FormatImportID(m.stamp, fileIndex, rowIndex),
		Date:                 ParseDate(m.cell(row, model.FieldDate), m.bank.Settings.DateFormat),
		Description:          strings.TrimSpace(m.cell(row, model.FieldDescription)),
		Amount:               m.amount(row),
		AccountID:            strings.TrimSpace(m.cell(row, model.FieldAccount)),
		DestinationAccountID: strings.TrimSpace(m.cell(row, model.FieldDestinationAccountID)),
		TransactionType:      strings.TrimSpace(m.cell(row, model.FieldTransactionType)),
		TransactionGroup:     strings.TrimSpace(m.cell(row, model.FieldTransactionGroup)),
		CategoryID:           strings.TrimSpace(m.cell(row, model.FieldCategoryID)),
		SubcategoryID:        strings.TrimSpace(m.cell(row, model.FieldSubcategoryID)),
		Payee:                strings.TrimSpace(m.cell(row, model.FieldPayee)),
		Payer:                strings.TrimSpace(m.cell(row, model.FieldPayer)),
		Reference:            strings.TrimSpace(m.cell(row, model.FieldReference)),
		Tag:                  strings.TrimSpace(m.cell(row, model.FieldTag)),
		Notes:                strings.TrimSpace(m.cell(row, model.FieldNotes)),
		CurrencyID:           m.currencyID,
		RowIndex:             rowIndex,
		RawData:              row,
	}

	if tx.AccountID == "" {
		tx.AccountID = m.bank.Settings.AccountID
	}
	tx.Tags = model.SplitTags(tx.Tag)

	if raw := m.cell(row, model.FieldDestinationAmount); strings.TrimSpace(raw) != "" {
		if d, ok := ParseAmount(raw); ok {
			tx.DestinationAmount = decimal.NewNullDecimal(d)
		}
	}

	return tx
}

func (m *Mapper) cell(row model.RawRow, f model.Field) string {
	col, ok := m.bank.FieldMapping.Column(f)
	if !ok {
		return ""
	}
	v, _ := row.Get(col)
	return v
}

func (m *Mapper) amount(row model.RawRow) decimal.NullDecimal {
	if m.bank.Settings.AmountHandling == model.AmountSeparate {
		debit, _ := ParseAmount(m.cell(row, model.FieldDebit))
		credit, _ := ParseAmount(m.cell(row, model.FieldCredit))
		if credit.IsPositive() {
			return decimal.NewNullDecimal(credit)
		}
		return decimal.NewNullDecimal(debit.Neg())
	}

	d, ok := ParseAmount(m.cell(row, model.FieldAmount))
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseAmount strips everything except digits, '-' and '.' and parses the
// longest numeric prefix of the rest, so "100.00-" reads as 100 and
// "1.234.56" as 1.234. ok is false (and the amount zero) when no digits lead.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)

	end, digits, dot := 0, 0, false
	if strings.HasPrefix(cleaned, "-") {
		end = 1
	}
	for ; end < len(cleaned); end++ {
		c := cleaned[end]
		if c == '.' && !dot {
			dot = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		digits++
	}
	if digits == 0 {
		return decimal.Zero, false
	}
	num := strings.TrimSuffix(cleaned[:end], ".")
	if rest, neg := strings.CutPrefix(num, "-"); strings.HasPrefix(rest, ".") {
		num = "0" + rest
		if neg {
			num = "-" + num
		}
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
