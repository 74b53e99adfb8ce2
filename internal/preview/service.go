package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/dedup"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
)

// Store is the persistence collaborator.
type Store interface {
	// FindAccountByID returns nil, nil when the account does not exist.
	FindAccountByID(ctx context.Context, id string) (*model.Account, error)
	// FindTransactionByHash returns nil, nil when no stored transaction has hash.
	FindTransactionByHash(ctx context.Context, hash string) (*model.ExistingRef, error)
	// Commit stores txns and returns them with IDs assigned, in input order.
	Commit(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error)
}

// ActionRecorder persists user decisions for the rule miner.
type ActionRecorder interface {
	Record(actions []model.UserAction) error
}

// Options configures a Service.
type Options struct {
	Format     string // importer dialect, default importer.FormatGeneric
	Workers    int    // concurrent hash lookups, default 4
	Dedup      dedup.Config
	Rules      []rules.Rule // applied to NEW rows when non-empty
	Categories []model.Category
	Now        func() time.Time
}

// Service builds and commits import previews.
type Service struct {
	store    Store
	actions  ActionRecorder
	detector *dedup.Detector
	opts     Options
	log      zerolog.Logger
}

// NewService creates a preview Service. actions may be nil.
func NewService(store Store, actions ActionRecorder, opts Options, log zerolog.Logger) *Service {
	if opts.Format == "" {
		opts.Format = importer.FormatGeneric
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    store,
		actions:  actions,
		detector: dedup.NewDetector(opts.Dedup),
		opts:     opts,
		log:      log.With().Str("component", "preview").Logger(),
	}
}

// Generate parses data and builds a preview for accountID. A missing
// account fails the whole import; structural parse errors are returned as
// *importer.StructuralError.
func (s *Service) Generate(ctx context.Context, fileName string, data []byte, accountID string) (*Preview, error) {
	if err := validateSource(fileName, accountID); err != nil {
		return nil, err
	}

	acct, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("finding account %s: %w", accountID, err)
	}
	if acct == nil {
		return nil, &NotFoundError{Kind: "account", ID: accountID}
	}

	parser := importer.DefaultRegistry(string(acct.Currency)).Get(s.opts.Format)
	if parser == nil {
		return nil, &ValidationError{Field: "format", Message: fmt.Sprintf("unknown import format %q", s.opts.Format)}
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}

	hashes := make([]string, len(res.Transactions))
	for i, t := range res.Transactions {
		hashes[i] = dedup.Fingerprint(accountID, t.Date, t.Amount, t.Description)
	}
	existing, err := s.lookupHashes(ctx, hashes)
	if err != nil {
		return nil, err
	}
	batch := s.detector.DetectDuplicates(res.Transactions)

	p, err := New(uuid.NewString(), fileName, accountID, s.opts.Now(), buildRows(res, hashes, batch, existing))
	if err != nil {
		return nil, err
	}

	suggested := 0
	if len(s.opts.Rules) > 0 {
		for i, r := range p.rows {
			if r.Status != StatusNew {
				continue
			}
			if m := rules.Apply(r.Transaction(accountID), s.opts.Rules, s.opts.Categories); m != nil {
				p.applySuggestion(i, m.RuleID, m.Action, m.CategoryID)
				suggested++
			}
		}
	}

	sum := p.Summary()
	s.log.Info().
		Str("file", fileName).
		Str("account", accountID).
		Str("format", parser.Format()).
		Int("rows", sum.TotalTransactions).
		Int("duplicates", sum.Duplicates).
		Int("errors", sum.Errors).
		Int("suggested", suggested).
		Msg("preview generated")
	return p, nil
}

// lookupHashes queries the store for every hash on a bounded worker pool.
// Results keep the order of hashes.
func (s *Service) lookupHashes(ctx context.Context, hashes []string) ([]*model.ExistingRef, error) {
	out := make([]*model.ExistingRef, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(s.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating lookup pool: %w", err)
	}
	defer pool.Release()

	errs := make([]error, len(hashes))
	var wg sync.WaitGroup
	for i, h := range hashes {
		i, h := i, h
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			out[i], errs[i] = s.store.FindTransactionByHash(ctx, h)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting hash lookup: %w", err)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("looking up transaction hashes: %w", err)
	}
	s.log.Debug().Int("lookups", len(hashes)).Int("workers", s.opts.Workers).Msg("hash lookups done")
	return out, nil
}

// CommitResult is what a successful commit stored.
type CommitResult struct {
	Transactions []model.Transaction
	Actions      []model.UserAction
}

// Commit validates p, hands the importable rows to the store and records
// the user's categorize and hide decisions.
func (s *Service) Commit(ctx context.Context, p *Preview) (*CommitResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rows := p.Importable()
	txns := make([]model.Transaction, len(rows))
	for i, r := range rows {
		txns[i] = r.Transaction(p.AccountID)
	}

	stored, err := s.store.Commit(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("committing preview %s: %w", p.ID, err)
	}
	if len(stored) != len(txns) {
		return nil, fmt.Errorf("committing preview %s: store returned %d transactions, want %d", p.ID, len(stored), len(txns))
	}

	now := s.opts.Now()
	var actions []model.UserAction
	for i, r := range rows {
		if r.userCategorized && r.CategoryID != "" {
			actions = append(actions, model.UserAction{
				TransactionID: stored[i].ID,
				Action:        model.ActionCategorize,
				CategoryID:    r.CategoryID,
				Timestamp:     now,
				Transaction:   stored[i],
			})
		}
		if r.userHidden {
			actions = append(actions, model.UserAction{
				TransactionID: stored[i].ID,
				Action:        model.ActionOmit,
				Timestamp:     now,
				Transaction:   stored[i],
			})
		}
	}
	if s.actions != nil && len(actions) > 0 {
		if err := s.actions.Record(actions); err != nil {
			return nil, fmt.Errorf("recording user actions: %w", err)
		}
	}

	s.log.Info().
		Str("preview", p.ID).
		Str("account", p.AccountID).
		Int("committed", len(stored)).
		Int("actions", len(actions)).
		Msg("preview committed")
	return &CommitResult{Transactions: stored, Actions: actions}, nil
}
