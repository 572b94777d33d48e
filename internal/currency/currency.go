// Package currency resolves currency codes and formats amounts for messages.
// Formatting is for display only; comparisons always use decimals.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cleared-dev/tally/internal/config"
)

// Currency is one known currency.
type Currency struct {
	ID       string
	Code     string
	Symbol   string
	Decimals int
}

// Registry looks currencies up by id or ISO code.
type Registry struct {
	base    Currency
	byID    map[string]Currency
	byCode  map[string]Currency
	printer *message.Printer
}

// NewRegistry builds a Registry from the project currency config. Codes must
// be ISO 4217.
func NewRegistry(cfg config.CurrencyConfig) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]Currency, len(cfg.Available)),
		byCode:  make(map[string]Currency, len(cfg.Available)),
		printer: message.NewPrinter(language.English),
	}

	var errs []error
	for _, e := range cfg.Available {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if _, err := currency.ParseISO(code); err != nil {
			errs = append(errs, fmt.Errorf("currency %q: %w", e.Code, err))
			continue
		}
		c := Currency{ID: e.ID, Code: code, Symbol: e.Symbol, Decimals: e.Decimals}
		r.byID[c.ID] = c
		r.byCode[c.Code] = c
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	base, ok := r.byCode[strings.ToUpper(cfg.Base)]
	if !ok {
		return nil, fmt.Errorf("base currency %q is not available", cfg.Base)
	}
	r.base = base
	return r, nil
}

// Base returns the base currency.
func (r *Registry) Base() Currency {
	return r.base
}

// Resolve finds a currency by ISO code, case-insensitively.
func (r *Registry) Resolve(code string) (Currency, bool) {
	c, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Get finds a currency by id.
func (r *Registry) Get(id string) (Currency, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Format renders amount in the currency with the given id, e.g. "-$1,234.50".
// Unknown ids fall back to the base currency.
func (r *Registry) Format(amount decimal.Decimal, currencyID string) string {
	c, ok := r.byID[currencyID]
	if !ok {
		c = r.base
	}

	rounded := amount.Round(int32(c.Decimals))
	f, _ := rounded.Abs().Float64()
	number := r.printer.Sprintf(fmt.Sprintf("%%.%df", c.Decimals), f)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	return sign + c.Symbol + number
}
