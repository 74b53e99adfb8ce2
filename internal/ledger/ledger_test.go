package ledger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

func txn(t *testing.T, date, amount, desc string) model.Transaction {
	t.Helper()
	d, err := money.ParseDate(date)
	require.NoError(t, err)
	m, err := money.Parse(amount, "EUR")
	require.NoError(t, err)
	return model.Transaction{
		AccountID:   "checking",
		Date:        d,
		Amount:      m,
		Description: desc,
		Hash:        "h-" + date + "-" + amount,
	}
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	accts := accounts.NewService(accounts.Defaults("checking", "EUR"))
	cats := categories.NewService(categories.Defaults())
	return NewService(dir, accts, cats, zerolog.Nop()), dir
}

func TestCSVRoundTrip(t *testing.T) {
	in := txn(t, "2025-09-01", "-25.30", `Groceries, "weekly"`)
	in.ID = "2025-09-001"
	in.Counterparty = "Rewe"
	in.PaymentReference = "REF 1"
	in.CategoryID = "groceries"
	in.Hidden = true

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, []model.Transaction{in}))

	out, err := ReadTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, MarshalTransaction(in), MarshalTransaction(out[0]))
	assert.True(t, out[0].Amount.Equal(in.Amount))
}

func TestUnmarshalTransaction_Errors(t *testing.T) {
	good := MarshalTransaction(txn(t, "2025-09-01", "1.00", "x"))

	_, err := UnmarshalTransaction(good[:4])
	assert.Error(t, err)

	for _, col := range []int{colDate, colAmount, colCurrency, colHidden} {
		bad := append([]string(nil), good...)
		bad[col] = "??"
		_, err := UnmarshalTransaction(bad)
		assert.Error(t, err, "column %d", col)
	}
}

func TestCommit_NewMonth(t *testing.T) {
	svc, dir := newTestService(t)

	out, err := svc.Commit(context.Background(), []model.Transaction{
		txn(t, "2025-09-01", "2500.00", "Salary"),
		txn(t, "2025-09-02", "-25.30", "Groceries"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2025-09-001", out[0].ID)
	assert.Equal(t, "2025-09-002", out[1].ID)

	_, err = os.Stat(filepath.Join(dir, "2025", "09", "transactions.csv"))
	require.NoError(t, err)

	stored, err := svc.ReadMonth(2025, 9)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for i := range out {
		assert.Equal(t, MarshalTransaction(out[i]), MarshalTransaction(stored[i]))
	}
}

func TestCommit_ExistingMonthAndSpanningMonths(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Commit(ctx, []model.Transaction{txn(t, "2025-09-01", "10.00", "First")})
	require.NoError(t, err)

	out, err := svc.Commit(ctx, []model.Transaction{
		txn(t, "2025-10-01", "-5.00", "October"),
		txn(t, "2025-09-30", "-7.00", "September"),
		txn(t, "2025-10-02", "-1.00", "October again"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-001", "2025-09-002", "2025-10-002"}, []string{out[0].ID, out[1].ID, out[2].ID})

	seq, err := svc.NextEntrySeq(2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2025-09-001", all[0].ID)
	assert.Equal(t, "2025-10-002", all[3].ID)
}

func TestCommit_ValidationFailureWritesNothing(t *testing.T) {
	svc, dir := newTestService(t)

	bad := txn(t, "2025-10-03", "-3.00", "Unknown account")
	bad.AccountID = "brokerage"
	cat := txn(t, "2025-10-04", "-3.00", "Unknown category")
	cat.CategoryID = "yachts"

	_, err := svc.Commit(context.Background(), []model.Transaction{
		txn(t, "2025-09-01", "10.00", "Fine"),
		bad,
		cat,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), `unknown account "brokerage"`)
	assert.Contains(t, err.Error(), `unknown category "yachts"`)

	_, statErr := os.Stat(filepath.Join(dir, "2025", "09", "transactions.csv"))
	assert.True(t, os.IsNotExist(statErr), "earlier valid month must not be written")
}

func TestCommit_ValidationErrorsAreTyped(t *testing.T) {
	svc, _ := newTestService(t)

	bad := txn(t, "2025-10-03", "-3.00", "Unknown account")
	bad.AccountID = "brokerage"

	_, err := svc.Commit(context.Background(), []model.Transaction{bad})
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Invariant)
	assert.Equal(t, "2025-10-001", ve.TransactionID)
}

func TestCommit_StagingFailureWritesNothing(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.Commit(ctx, []model.Transaction{txn(t, "2025-10-01", "1.00", "Existing")})
	require.NoError(t, err)
	octPath := filepath.Join(dir, "2025", "10", "transactions.csv")
	before, err := os.ReadFile(octPath)
	require.NoError(t, err)

	calls := 0
	createTemp = func(d, pattern string) (*os.File, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("disk full")
		}
		return os.CreateTemp(d, pattern)
	}
	t.Cleanup(func() { createTemp = os.CreateTemp })

	_, err = svc.Commit(ctx, []model.Transaction{
		txn(t, "2025-09-01", "10.00", "September"),
		txn(t, "2025-10-02", "20.00", "October"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, statErr := os.Stat(filepath.Join(dir, "2025", "09", "transactions.csv"))
	assert.True(t, os.IsNotExist(statErr), "september must not be written")
	after, err := os.ReadFile(octPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	leftovers, err := filepath.Glob(filepath.Join(dir, "2025", "*", ".transactions-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFindTransactionByHash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.FindTransactionByHash(ctx, "h-2025-09-01-10.00")
	require.NoError(t, err)
	assert.Nil(t, ref)

	_, err = svc.Commit(ctx, []model.Transaction{txn(t, "2025-09-01", "10.00", "Fine")})
	require.NoError(t, err)

	ref, err = svc.FindTransactionByHash(ctx, "h-2025-09-01-10.00")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "2025-09-001", ref.ID)
	assert.Equal(t, "checking", ref.AccountID)

	acct, err := svc.FindAccountByID(ctx, "checking")
	require.NoError(t, err)
	assert.NotNil(t, acct)
}

func TestReadMonth_NonExistent(t *testing.T) {
	svc, _ := newTestService(t)
	txns, err := svc.ReadMonth(2025, 6)
	require.NoError(t, err)
	assert.Empty(t, txns)

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestValidateMonth(t *testing.T) {
	accts := accounts.NewService(accounts.Defaults("checking", "EUR"))

	ok := txn(t, "2025-09-01", "1.00", "ok")
	ok.ID = "2025-09-001"
	assert.Empty(t, ValidateMonth([]model.Transaction{ok}, accts, nil, 2025, 9))

	wrongMonth := txn(t, "2025-08-31", "1.00", "late")
	wrongMonth.ID = "2025-09-002"
	zero := txn(t, "2025-09-02", "0", "zero")
	zero.ID = "2025-09-003"
	precise := txn(t, "2025-09-02", "1.005", "")
	precise.ID = "2025-09-005"
	dupSeq := ok

	errs := ValidateMonth([]model.Transaction{ok, wrongMonth, zero, precise, dupSeq}, accts, nil, 2025, 9)
	invariants := map[int]int{}
	for _, e := range errs {
		invariants[e.Invariant]++
	}
	assert.Equal(t, 1, invariants[2], "date outside month")
	assert.Equal(t, 2, invariants[3], "zero and over-precise amounts")
	assert.Equal(t, 1, invariants[4], "empty description")
	assert.Equal(t, 2, invariants[5], "duplicate seq and gap at 4")
}

func TestValidateMonth_IdenticalHashesAllowed(t *testing.T) {
	accts := accounts.NewService(accounts.Defaults("checking", "EUR"))
	a := txn(t, "2025-09-01", "-3.20", "Coffee")
	a.ID = "2025-09-001"
	b := a
	b.ID = "2025-09-002"
	assert.Empty(t, ValidateMonth([]model.Transaction{a, b}, accts, nil, 2025, 9))
}
