// Package sqlite is a single-file SQLite backend for accounts, categories
// and committed transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	type     TEXT NOT NULL,
	currency TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transactions (
	id                TEXT PRIMARY KEY,
	year              INTEGER NOT NULL,
	month             INTEGER NOT NULL,
	seq               INTEGER NOT NULL,
	date              TEXT NOT NULL,
	account_id        TEXT NOT NULL REFERENCES accounts(id),
	amount            TEXT NOT NULL,
	currency          TEXT NOT NULL,
	description       TEXT NOT NULL,
	counterparty      TEXT NOT NULL DEFAULT '',
	payment_reference TEXT NOT NULL DEFAULT '',
	category_id       TEXT NOT NULL DEFAULT '',
	hidden            INTEGER NOT NULL DEFAULT 0,
	hash              TEXT NOT NULL DEFAULT '',
	UNIQUE (year, month, seq)
);

CREATE INDEX IF NOT EXISTS idx_transactions_hash ON transactions(hash);
`

// Store implements the preview persistence collaborator on SQLite.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "sqlite").Str("path", path).Logger()}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertAccount inserts or replaces an account.
func (s *Store) UpsertAccount(ctx context.Context, acct model.Account) error {
	if acct.ID == "" {
		return errors.New("account ID is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, type, currency) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type, currency = excluded.currency`,
		acct.ID, acct.Name, string(acct.Type), string(acct.Currency))
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", acct.ID, err)
	}
	return nil
}

// Accounts returns all accounts ordered by ID.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, currency FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// FindAccountByID returns nil, nil when the account does not exist.
func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, type, currency FROM accounts WHERE id = ?`, accountID)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(sc scanner) (model.Account, error) {
	var acct model.Account
	var typ, currency string
	if err := sc.Scan(&acct.ID, &acct.Name, &typ, &currency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return acct, err
		}
		return acct, fmt.Errorf("scanning account: %w", err)
	}
	acct.Type = model.AccountType(typ)
	acct.Currency = money.Currency(currency)
	return acct, nil
}

// UpsertCategory inserts or replaces a category.
func (s *Store) UpsertCategory(ctx context.Context, cat model.Category) error {
	if cat.ID == "" {
		return errors.New("category ID is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id`,
		cat.ID, cat.Name, cat.ParentID)
	if err != nil {
		return fmt.Errorf("upserting category %s: %w", cat.ID, err)
	}
	return nil
}

// Categories returns all categories ordered by ID.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent_id FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindTransactionByHash returns the earliest stored transaction with hash,
// or nil, nil.
func (s *Store) FindTransactionByHash(ctx context.Context, hash string) (*model.ExistingRef, error) {
	var ref model.ExistingRef
	var date string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, date FROM transactions
		WHERE hash = ? ORDER BY year, month, seq LIMIT 1`, hash).Scan(&ref.ID, &ref.AccountID, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up hash: %w", err)
	}
	if ref.Date, err = money.ParseDate(date); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Commit inserts txns in one database transaction, assigning YYYY-MM-NNN IDs
// that continue each month's sequence. Either every row is stored or none.
func (s *Store) Commit(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]model.Transaction, len(txns))
	copy(out, txns)

	next := make(map[[2]int]int)
	for i := range out {
		t := &out[i]
		if err := checkTransaction(ctx, tx, *t); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		key := [2]int{t.Date.Year(), int(t.Date.Month())}
		seq, ok := next[key]
		if !ok {
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions WHERE year = ? AND month = ?`,
				key[0], key[1]).Scan(&seq); err != nil {
				return nil, fmt.Errorf("reading sequence for %04d-%02d: %w", key[0], key[1], err)
			}
		}
		next[key] = seq + 1
		t.ID = id.FormatEntryID(key[0], key[1], seq)

		hidden := 0
		if t.Hidden {
			hidden = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, year, month, seq, date, account_id, amount, currency,
				description, counterparty, payment_reference, category_id, hidden, hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, key[0], key[1], seq, t.Date.String(), t.AccountID, t.Amount.StringFixed(),
			string(t.Amount.Currency()), t.Description, t.Counterparty, t.PaymentReference,
			t.CategoryID, hidden, t.Hash); err != nil {
			return nil, fmt.Errorf("inserting %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	s.log.Info().Int("transactions", len(out)).Msg("transactions stored")
	return out, nil
}

func checkTransaction(ctx context.Context, tx *sql.Tx, t model.Transaction) error {
	var problems []string
	if t.Date.IsZero() {
		return errors.New("no date")
	}
	if t.Amount.IsZero() {
		problems = append(problems, "zero amount")
	} else if !t.Amount.Round().Equal(t.Amount) {
		problems = append(problems, fmt.Sprintf("amount %s has more than %d decimal places", t.Amount.Amount(), t.Amount.Currency().Decimals()))
	}
	if strings.TrimSpace(t.Description) == "" {
		problems = append(problems, "empty description")
	}

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE id = ?`, t.AccountID).Scan(&n); err != nil {
		return fmt.Errorf("checking account: %w", err)
	}
	if n == 0 {
		problems = append(problems, fmt.Sprintf("unknown account %q", t.AccountID))
	}
	if t.CategoryID != "" {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, t.CategoryID).Scan(&n); err != nil {
			return fmt.Errorf("checking category: %w", err)
		}
		if n == 0 {
			problems = append(problems, fmt.Sprintf("unknown category %q", t.CategoryID))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// All returns every stored transaction in ID order.
func (s *Store) All(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, account_id, amount, currency, description, counterparty,
			payment_reference, category_id, hidden, hash
		FROM transactions ORDER BY year, month, seq`)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t                      model.Transaction
			date, amount, currency string
			hidden                 int
		)
		if err := rows.Scan(&t.ID, &date, &t.AccountID, &amount, &currency, &t.Description,
			&t.Counterparty, &t.PaymentReference, &t.CategoryID, &hidden, &t.Hash); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Date, err = money.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if t.Amount, err = money.Parse(amount, money.Currency(currency)); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		t.Hidden = hidden != 0
		out = append(out, t)
	}
	return out, rows.Err()
}
