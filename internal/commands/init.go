package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/rules"
)

type initOptions struct {
	name     string
	currency string
	account  string
	backend  string
	noGit    bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "project name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.currency, "currency", "EUR", "currency of the main account")
	cmd.Flags().StringVar(&opts.account, "account", "checking", "ID of the main account")
	cmd.Flags().StringVar(&opts.backend, "backend", config.BackendFile, "store backend: file or sqlite")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "skip git init and the initial commit")

	return cmd
}

func runInit(dir string, opts initOptions, out, logOut io.Writer) error {
	currency, err := money.ParseCurrency(opts.currency)
	if err != nil {
		return err
	}

	cfg := config.Default(opts.name, string(currency), opts.account)
	cfg.Store.Backend = opts.backend
	if err := cfg.Validate(); err != nil {
		return err
	}

	dirs := []string{
		"accounts",
		"categories",
		"rules",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := accounts.NewService(accounts.Defaults(opts.account, currency)).Save(dir); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}
	if err := categories.NewService(categories.Defaults()).Save(dir); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	if err := rules.NewStore(filepath.Join(dir, rulesFile)).Save(nil); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	gitignore := "*.db-journal\n*.db-wal\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	for _, keep := range []string{"import", filepath.Join("import", "processed"), "logs"} {
		if err := os.WriteFile(filepath.Join(dir, keep, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	if opts.noGit {
		fmt.Fprintf(out, "Initialized tally project at %s\n", dir)
		return nil
	}

	repo := gitops.New(dir, cfg.Git.AuthorName, cfg.Git.AuthorEmail, logger.New(cfg.Logging, logOut))
	if err := repo.Init(); err != nil {
		return err
	}
	hash, err := repo.CommitAll("init: Initialize " + opts.name)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized tally project at %s (%s)\n", dir, hash)
	return nil
}
