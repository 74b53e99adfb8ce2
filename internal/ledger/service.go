package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// AccountDirectory resolves import accounts.
type AccountDirectory interface {
	AccountChecker
	FindAccountByID(ctx context.Context, id string) (*model.Account, error)
}

// Service stores transactions in monthly CSV files under
// <repoRoot>/YYYY/MM/transactions.csv.
type Service struct {
	repoRoot   string
	accounts   AccountDirectory
	categories CategoryChecker
	log        zerolog.Logger

	mu     sync.Mutex
	byHash map[string]model.ExistingRef // nil until first lookup
}

// NewService creates a ledger Service. categories may be nil to skip
// category checks.
func NewService(repoRoot string, accounts AccountDirectory, categories CategoryChecker, log zerolog.Logger) *Service {
	return &Service{
		repoRoot:   repoRoot,
		accounts:   accounts,
		categories: categories,
		log:        log.With().Str("component", "ledger").Logger(),
	}
}

// FindAccountByID delegates to the account directory.
func (s *Service) FindAccountByID(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accounts.FindAccountByID(ctx, accountID)
}

// FindTransactionByHash returns the first stored transaction with hash, or nil.
// Safe for concurrent use.
func (s *Service) FindTransactionByHash(ctx context.Context, hash string) (*model.ExistingRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byHash == nil {
		all, err := s.All(ctx)
		if err != nil {
			return nil, err
		}
		s.byHash = make(map[string]model.ExistingRef, len(all))
		for _, t := range all {
			if _, ok := s.byHash[t.Hash]; !ok && t.Hash != "" {
				s.byHash[t.Hash] = model.ExistingRef{ID: t.ID, AccountID: t.AccountID, Date: t.Date}
			}
		}
	}

	ref, ok := s.byHash[hash]
	if !ok {
		return nil, nil
	}
	return &ref, nil
}

// createTemp is swapped in tests to simulate a failing disk.
var createTemp = os.CreateTemp

// Commit assigns IDs, validates every affected month and rewrites those
// months. Each month is first written in full to a temp file beside its
// ledger; the temps are renamed into place only once every month has
// validated and been staged. The returned slice keeps input order.
func (s *Service) Commit(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type month struct{ year, month int }
	var order []month
	groups := make(map[month][]int)
	for i, t := range txns {
		if t.Date.IsZero() {
			return nil, fmt.Errorf("transaction %d has no date", i)
		}
		m := month{t.Date.Year(), int(t.Date.Month())}
		if _, ok := groups[m]; !ok {
			order = append(order, m)
		}
		groups[m] = append(groups[m], i)
	}

	out := make([]model.Transaction, len(txns))
	copy(out, txns)

	pending := make(map[month][]model.Transaction, len(order))
	for _, m := range order {
		existing, err := s.ReadMonth(m.year, m.month)
		if err != nil {
			return nil, err
		}
		seq := nextSeq(existing)

		all := existing
		for _, i := range groups[m] {
			out[i].ID = id.FormatEntryID(m.year, m.month, seq)
			seq++
			all = append(all, out[i])
		}

		if verrs := ValidateMonth(all, s.accounts, s.categories, m.year, m.month); len(verrs) > 0 {
			errs := make([]error, len(verrs))
			for i, ve := range verrs {
				errs[i] = ve
			}
			return nil, fmt.Errorf("validation failed: %w", errors.Join(errs...))
		}
		pending[m] = all
	}

	staged := make([]string, 0, len(order))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}
	for _, m := range order {
		tmp, err := s.stageMonth(m.year, m.month, pending[m])
		if err != nil {
			cleanup()
			return nil, err
		}
		staged = append(staged, tmp)
	}
	for i, m := range order {
		if err := os.Rename(staged[i], s.monthPath(m.year, m.month)); err != nil {
			cleanup()
			return nil, fmt.Errorf("replacing ledger %04d-%02d: %w", m.year, m.month, err)
		}
	}

	s.mu.Lock()
	s.byHash = nil
	s.mu.Unlock()

	s.log.Info().Int("transactions", len(out)).Int("months", len(order)).Msg("ledger updated")
	return out, nil
}

// stageMonth writes a month's full contents to a temp file in the month's
// directory and returns its path.
func (s *Service) stageMonth(year, month int, txns []model.Transaction) (string, error) {
	path := s.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := createTemp(filepath.Dir(path), ".transactions-*.csv")
	if err != nil {
		return "", fmt.Errorf("staging ledger %04d-%02d: %w", year, month, err)
	}
	if err := WriteTransactions(f, txns); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing ledger %04d-%02d: %w", year, month, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing ledger %04d-%02d: %w", year, month, err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("staging ledger %04d-%02d: %w", year, month, err)
	}
	return f.Name(), nil
}

// ReadMonth reads all transactions for a given year/month.
func (s *Service) ReadMonth(year, month int) ([]model.Transaction, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return txns, nil
}

// All reads every month in chronological order.
func (s *Service) All(ctx context.Context) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(s.repoRoot, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", "transactions.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing ledger files: %w", err)
	}
	sort.Strings(paths)

	var out []model.Transaction
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening ledger %s: %w", path, err)
		}
		txns, err := ReadTransactions(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading ledger %s: %w", path, err)
		}
		out = append(out, txns...)
	}
	return out, nil
}

// NextEntrySeq returns the next available sequence number for a month.
func (s *Service) NextEntrySeq(year, month int) (int, error) {
	txns, err := s.ReadMonth(year, month)
	if err != nil {
		return 0, err
	}
	return nextSeq(txns), nil
}

func nextSeq(txns []model.Transaction) int {
	maxSeq := 0
	for _, t := range txns {
		_, _, seq, err := id.ParseEntryID(t.ID)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

func (s *Service) monthPath(year, month int) string {
	return filepath.Join(s.repoRoot, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "transactions.csv")
}
