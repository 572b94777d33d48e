package accounts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestGetExists(t *testing.T) {
	svc := NewService(Defaults("usd"))

	acct, ok := svc.Get("checking")
	assert.True(t, ok)
	assert.Equal(t, "Checking", acct.Name)

	_, ok = svc.Get("nope")
	assert.False(t, ok)

	assert.True(t, svc.Exists("savings"))
	assert.False(t, svc.Exists(""))
}

func TestByType(t *testing.T) {
	svc := NewService(Defaults("usd"))

	cards := svc.ByType(model.AccountTypeCreditCard)
	require.Len(t, cards, 1)
	assert.Equal(t, "credit-card", cards[0].ID)
	assert.Empty(t, svc.ByType(model.AccountTypeLoan))
}

func TestLoadFromTestdata(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "accounts"), 0o755))

	src, err := os.ReadFile("../../testdata/accounts.csv")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FilePath), src, 0o644))

	svc, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, svc.All(), 6)
	assert.True(t, svc.Exists("eur-checking"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	defaults := Defaults("usd")
	dir := t.TempDir()
	require.NoError(t, NewService(defaults).Save(dir))

	_, err := os.Stat(filepath.Join(dir, "accounts", "accounts.csv"))
	require.NoError(t, err)

	svc, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, defaults, svc.All())
}
