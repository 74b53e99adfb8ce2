package accounts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cleared-dev/tally/internal/model"
)

// Service provides in-memory lookup over the import target accounts.
type Service struct {
	accounts []model.Account
	byID     map[string]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Service{accounts: accounts, byID: byID}
}

// Path returns the accounts file under repoRoot.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "accounts", "accounts.csv")
}

// Load reads accounts/accounts.csv from a repo root and returns a Service.
func Load(repoRoot string) (*Service, error) {
	f, err := os.Open(Path(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("opening accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// FindAccountByID returns the account, or nil when it does not exist.
func (s *Service) FindAccountByID(_ context.Context, id string) (*model.Account, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Add appends a new account.
func (s *Service) Add(acct model.Account) error {
	if acct.ID == "" {
		return fmt.Errorf("account id must not be empty")
	}
	if s.Exists(acct.ID) {
		return fmt.Errorf("account %q already exists", acct.ID)
	}
	s.accounts = append(s.accounts, acct)
	s.byID[acct.ID] = acct
	return nil
}

// Save writes the accounts to accounts/accounts.csv.
func (s *Service) Save(repoRoot string) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.accounts); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}
	return nil
}
