package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project config file at the repo root.
const FileName = "tally.yaml"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Currency CurrencyConfig `yaml:"currency"`
	Import   ImportConfig   `yaml:"import"`
	Log      LogConfig      `yaml:"log"`
	Git      GitConfig      `yaml:"git"`
}

// BusinessConfig identifies whose books these are.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// CurrencyConfig lists the currencies transactions may be recorded in.
type CurrencyConfig struct {
	Base      string          `yaml:"base"` // ISO code of the base currency
	Available []CurrencyEntry `yaml:"available"`
}

// CurrencyEntry is one known currency.
type CurrencyEntry struct {
	ID       string `yaml:"id"`
	Code     string `yaml:"code"`
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"`
}

// ImportConfig holds import defaults.
type ImportConfig struct {
	DefaultBank    string `yaml:"default_bank,omitempty"`
	AcceptWarnings bool   `yaml:"accept_warnings"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks that the base currency is one of the available currencies
// and that currency ids are unique.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	baseFound := false
	for _, cur := range c.Currency.Available {
		if cur.ID == "" {
			errs = append(errs, fmt.Errorf("currency %q has no id", cur.Code))
			continue
		}
		if seen[cur.ID] {
			errs = append(errs, fmt.Errorf("duplicate currency id %q", cur.ID))
		}
		seen[cur.ID] = true
		if strings.EqualFold(cur.Code, c.Currency.Base) {
			baseFound = true
		}
	}
	if !baseFound {
		errs = append(errs, fmt.Errorf("base currency %q is not in available currencies", c.Currency.Base))
	}
	return errors.Join(errs...)
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, baseCurrency string) *Config {
	if baseCurrency == "" {
		baseCurrency = "USD"
	}
	base := strings.ToUpper(baseCurrency)

	available := []CurrencyEntry{
		{ID: "usd", Code: "USD", Symbol: "$", Decimals: 2},
		{ID: "eur", Code: "EUR", Symbol: "€", Decimals: 2},
		{ID: "gbp", Code: "GBP", Symbol: "£", Decimals: 2},
		{ID: "jpy", Code: "JPY", Symbol: "¥", Decimals: 0},
	}
	found := false
	for _, c := range available {
		if c.Code == base {
			found = true
		}
	}
	if !found {
		available = append(available, CurrencyEntry{ID: strings.ToLower(base), Code: base, Symbol: base + " ", Decimals: 2})
	}

	return &Config{
		Business: BusinessConfig{Name: businessName},
		Currency: CurrencyConfig{
			Base:      base,
			Available: available,
		},
		Import: ImportConfig{
			AcceptWarnings: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "tally@cleared.dev",
		},
	}
}
