package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Biz", "usd")
	cfg.Import.DefaultBank = "chase-checking"

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business.Name, got.Business.Name)
	assert.Equal(t, "USD", got.Currency.Base)
	assert.Equal(t, cfg.Currency.Available, got.Currency.Available)
	assert.Equal(t, "chase-checking", got.Import.DefaultBank)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Git, got.Git)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company", "")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, "USD", cfg.Currency.Base)
	assert.Len(t, cfg.Currency.Available, 4)
	assert.False(t, cfg.Import.AcceptWarnings)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Git.AutoCommit)
	assert.Equal(t, "Tally", cfg.Git.AuthorName)
	assert.NoError(t, cfg.Validate())
}

func TestDefaults_UnlistedBaseCurrency(t *testing.T) {
	cfg := Default("My Company", "chf")

	assert.Equal(t, "CHF", cfg.Currency.Base)
	require.Len(t, cfg.Currency.Available, 5)
	assert.Equal(t, "chf", cfg.Currency.Available[4].ID)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Default("X", "USD")
	cfg.Currency.Base = "NZD"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base currency")

	cfg = Default("X", "USD")
	cfg.Currency.Available = append(cfg.Currency.Available, CurrencyEntry{ID: "usd", Code: "USD"})
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate currency id")
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("currency:\n  base: USD\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz", "EUR")
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "base: EUR")
	assert.Contains(t, contents, "auto_commit: true")
	assert.Contains(t, contents, "level: info")
}
