package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tally.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.UpsertAccount(ctx, model.Account{ID: "checking", Name: "Checking", Type: model.AccountTypeChecking, Currency: "EUR"}))
	require.NoError(t, s.UpsertCategory(ctx, model.Category{ID: "food", Name: "Food"}))
	require.NoError(t, s.UpsertCategory(ctx, model.Category{ID: "groceries", Name: "Groceries", ParentID: "food"}))
	return s
}

func txn(t *testing.T, date, amount, desc, hash string) model.Transaction {
	t.Helper()
	d, err := money.ParseDate(date)
	require.NoError(t, err)
	m, err := money.Parse(amount, "EUR")
	require.NoError(t, err)
	return model.Transaction{AccountID: "checking", Date: d, Amount: m, Description: desc, Hash: hash}
}

func TestAccountsAndCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acct, err := s.FindAccountByID(ctx, "checking")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, money.Currency("EUR"), acct.Currency)
	assert.Equal(t, model.AccountTypeChecking, acct.Type)

	missing, err := s.FindAccountByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.UpsertAccount(ctx, model.Account{ID: "checking", Name: "Main", Type: model.AccountTypeChecking, Currency: "EUR"}))
	all, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Main", all[0].Name)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "food", cats[0].ID)
	assert.Equal(t, "food", cats[1].ParentID)

	assert.Error(t, s.UpsertAccount(ctx, model.Account{}))
}

func TestCommit_AssignsSequentialIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out, err := s.Commit(ctx, []model.Transaction{
		txn(t, "2025-09-01", "2500.00", "Salary", "a"),
		txn(t, "2025-10-01", "-5.00", "October", "b"),
		txn(t, "2025-09-02", "-25.30", "Groceries", "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-09-001", out[0].ID)
	assert.Equal(t, "2025-10-001", out[1].ID)
	assert.Equal(t, "2025-09-002", out[2].ID)

	out, err = s.Commit(ctx, []model.Transaction{txn(t, "2025-09-15", "-1.00", "Later", "d")})
	require.NoError(t, err)
	assert.Equal(t, "2025-09-003", out[0].ID)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	ids := make([]string, len(all))
	for i, tx := range all {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"2025-09-001", "2025-09-002", "2025-09-003", "2025-10-001"}, ids)
	assert.Equal(t, "-25.30", all[1].Amount.StringFixed())
	assert.Equal(t, "Groceries", all[1].Description)
}

func TestCommit_RoundTripsFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := txn(t, "2025-09-03", "-12.99", "NETFLIX.COM", "h1")
	in.Counterparty = "Netflix"
	in.PaymentReference = "Subscription"
	in.CategoryID = "groceries"
	in.Hidden = true

	_, err := s.Commit(ctx, []model.Transaction{in})
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, "Netflix", got.Counterparty)
	assert.Equal(t, "Subscription", got.PaymentReference)
	assert.Equal(t, "groceries", got.CategoryID)
	assert.True(t, got.Hidden)
	assert.Equal(t, "h1", got.Hash)
	assert.True(t, got.Date.Equal(in.Date))
	assert.True(t, got.Amount.Equal(in.Amount))
}

func TestCommit_RollsBackOnInvalidRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bad := txn(t, "2025-09-02", "-1.00", "Unknown", "x")
	bad.AccountID = "brokerage"

	_, err := s.Commit(ctx, []model.Transaction{
		txn(t, "2025-09-01", "1.00", "Fine", "y"),
		bad,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown account "brokerage"`)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	zero := txn(t, "2025-09-02", "0", " ", "z")
	_, err = s.Commit(ctx, []model.Transaction{zero})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero amount")
	assert.Contains(t, err.Error(), "empty description")

	cat := txn(t, "2025-09-02", "-1.00", "Cat", "w")
	cat.CategoryID = "yachts"
	_, err = s.Commit(ctx, []model.Transaction{cat})
	assert.ErrorContains(t, err, `unknown category "yachts"`)
}

func TestFindTransactionByHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ref, err := s.FindTransactionByHash(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, ref)

	_, err = s.Commit(ctx, []model.Transaction{
		txn(t, "2025-09-05", "-3.20", "Coffee", "h"),
		txn(t, "2025-09-05", "-3.20", "Coffee", "h"),
	})
	require.NoError(t, err)

	ref, err = s.FindTransactionByHash(ctx, "h")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "2025-09-001", ref.ID)
	assert.Equal(t, "checking", ref.AccountID)
	assert.Equal(t, "2025-09-05", ref.Date.String())
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	ctx := context.Background()

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.UpsertAccount(ctx, model.Account{ID: "cash", Name: "Cash", Type: model.AccountTypeCash, Currency: "USD"}))
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	acct, err := s.FindAccountByID(ctx, "cash")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, money.Currency("USD"), acct.Currency)
}
