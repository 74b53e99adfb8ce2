package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestGetExists(t *testing.T) {
	svc := NewService(Defaults("checking", "EUR"))

	acct, ok := svc.Get("checking")
	assert.True(t, ok)
	assert.Equal(t, "Main account", acct.Name)

	_, ok = svc.Get("nope")
	assert.False(t, ok)

	assert.True(t, svc.Exists("cash"))
	assert.False(t, svc.Exists("nope"))
}

func TestFindAccountByID(t *testing.T) {
	svc := NewService(Defaults("checking", "EUR"))

	acct, err := svc.FindAccountByID(context.Background(), "checking")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.EqualValues(t, "EUR", acct.Currency)

	acct, err = svc.FindAccountByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestAdd(t *testing.T) {
	svc := NewService(nil)
	require.NoError(t, svc.Add(model.Account{ID: "savings", Name: "Savings", Type: model.AccountTypeSavings, Currency: "EUR"}))
	assert.Error(t, svc.Add(model.Account{ID: "savings"}))
	assert.Error(t, svc.Add(model.Account{}))
	assert.Len(t, svc.All(), 1)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Defaults("checking", "GBP"))
	require.NoError(t, svc.Save(dir))

	_, err := os.Stat(filepath.Join(dir, "accounts", "accounts.csv"))
	require.NoError(t, err)

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, svc.All(), loaded.All())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
