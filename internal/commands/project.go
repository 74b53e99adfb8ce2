package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/actionlog"
	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/preview"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/store/sqlite"
)

// rulesFile is the rule store, relative to the project root.
var rulesFile = filepath.Join("rules", "rules.yaml")

// backend is what the commands need from a persistence layer.
type backend interface {
	preview.Store
	All(ctx context.Context) ([]model.Transaction, error)
}

// project is an opened tally repository.
type project struct {
	root       string
	cfg        *config.Config
	log        zerolog.Logger
	accounts   *accounts.Service
	categories *categories.Service
	store      backend
	actions    *actionlog.Log
	rules      *rules.Store

	closer io.Closer
}

func openProject(ctx context.Context, dir string, logOut io.Writer) (*project, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a tally project (run tally init)", root)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}
	log := logger.New(cfg.Logging, logOut)

	accts, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}
	cats, err := categories.Load(root)
	if err != nil {
		return nil, err
	}

	p := &project{
		root:       root,
		cfg:        cfg,
		log:        log,
		accounts:   accts,
		categories: cats,
		actions:    actionlog.New(root),
		rules:      rules.NewStore(filepath.Join(root, rulesFile)),
	}

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		path := cfg.Store.SQLitePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		db, err := sqlite.Open(path, log)
		if err != nil {
			return nil, err
		}
		if err := syncReferenceData(ctx, db, accts, cats); err != nil {
			_ = db.Close()
			return nil, err
		}
		p.store = db
		p.closer = db
	default:
		p.store = ledger.NewService(root, accts, cats, log)
	}
	return p, nil
}

// syncReferenceData copies accounts.csv and categories.csv into the database
// so commits can check references.
func syncReferenceData(ctx context.Context, db *sqlite.Store, accts *accounts.Service, cats *categories.Service) error {
	for _, a := range accts.All() {
		if err := db.UpsertAccount(ctx, a); err != nil {
			return err
		}
	}
	for _, c := range cats.All() {
		if err := db.UpsertCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *project) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *project) previewService() (*preview.Service, error) {
	opts := preview.Options{
		Format:     p.cfg.Import.Format,
		Workers:    p.cfg.Import.Workers,
		Dedup:      p.cfg.Dedup,
		Categories: p.categories.All(),
	}
	if p.cfg.Rules.ApplyAtPreview {
		rs, err := p.rules.Load()
		if err != nil {
			return nil, err
		}
		opts.Rules = rs
	}
	return preview.NewService(p.store, p.actions, opts, p.log), nil
}

// accountFor picks the flag value or the configured default.
func (p *project) accountFor(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p.cfg.Import.DefaultAccount != "" {
		return p.cfg.Import.DefaultAccount, nil
	}
	return "", fmt.Errorf("no account given: pass --account or set import.default_account in %s", config.FileName)
}
