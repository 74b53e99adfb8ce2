package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/preview"
)

type importOptions struct {
	account           string
	discardDuplicates bool
	only              []string
	exclude           []string
	category          string
	hide              bool
	describe          []string
	dryRun            bool
}

func newImportCommand(repoDir *string) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import a bank CSV, or every CSV in import/",
		Long: `Import builds a preview, applies the corrections given as flags and
commits the importable rows. Corrections run in this order: discard
duplicates, --only, --exclude, --describe, --category, --hide.

Without a file argument every CSV in import/ is imported and moved to
import/processed/. Row IDs are per file, so --only, --exclude and
--describe need an explicit file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proj, err := openProject(ctx, *repoDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer proj.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return runImport(ctx, proj, args[0], opts, out)
			}
			if len(opts.only) > 0 || len(opts.exclude) > 0 || len(opts.describe) > 0 {
				return errors.New("--only, --exclude and --describe need a file argument")
			}
			return runImportDir(ctx, proj, opts, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.account, "account", "", "target account (default import.default_account)")
	f.BoolVar(&opts.discardDuplicates, "discard-duplicates", false, "discard every duplicate row")
	f.StringSliceVar(&opts.only, "only", nil, "import only these row IDs")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "deselect these row IDs")
	f.StringVar(&opts.category, "category", "", "assign this category to every selected row")
	f.BoolVar(&opts.hide, "hide", false, "store every selected row hidden")
	f.StringArrayVar(&opts.describe, "describe", nil, "replace a description: row-0003=new text (repeatable)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the corrected preview without committing")

	return cmd
}

func runImportDir(ctx context.Context, proj *project, opts importOptions, out io.Writer) error {
	files, err := importer.Scan(proj.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No CSV files in import/.")
		return nil
	}
	for _, f := range files {
		if err := runImport(ctx, proj, f.Path, opts, out); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

func runImport(ctx context.Context, proj *project, path string, opts importOptions, out io.Writer) error {
	acct, err := proj.accountFor(opts.account)
	if err != nil {
		return err
	}
	svc, err := proj.previewService()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	p, err := svc.Generate(ctx, name, data, acct)
	if err != nil {
		return err
	}
	if err := applyCorrections(p, opts); err != nil {
		return err
	}

	if opts.dryRun {
		printPreview(out, p)
		return nil
	}

	imported := 0
	if len(p.Importable()) == 0 {
		fmt.Fprintf(out, "%s: nothing to import\n", name)
	} else {
		res, err := svc.Commit(ctx, p)
		if err != nil {
			return err
		}
		imported = len(res.Transactions)
		first, last := res.Transactions[0].ID, res.Transactions[len(res.Transactions)-1].ID
		green.Fprintf(out, "%s: imported %d transactions (%s .. %s)\n", name, imported, first, last)
	}

	if inImportDir(proj.root, path) {
		if err := importer.MarkProcessed(proj.root, name); err != nil {
			return err
		}
	}

	if proj.cfg.Git.AutoCommit && gitops.IsRepo(proj.root) {
		repo := gitops.New(proj.root, proj.cfg.Git.AuthorName, proj.cfg.Git.AuthorEmail, proj.log)
		hash, err := repo.CommitAll(gitops.ImportMessage(name, imported))
		switch {
		case errors.Is(err, gitops.ErrNothingToCommit):
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}
	return nil
}

// applyCorrections replays the user's flags on p in a fixed order.
func applyCorrections(p *preview.Preview, opts importOptions) error {
	if opts.discardDuplicates {
		p.DiscardDuplicates()
	}
	if len(opts.only) > 0 {
		p.DeselectAll()
		for _, id := range opts.only {
			if err := p.Select(id); err != nil {
				return err
			}
		}
	}
	for _, id := range opts.exclude {
		if err := p.Deselect(id); err != nil {
			return err
		}
	}
	for _, d := range opts.describe {
		id, text, ok := strings.Cut(d, "=")
		if !ok {
			return &preview.ValidationError{Field: "describe", Message: fmt.Sprintf("%q is not row-id=text", d)}
		}
		if err := p.UpdateDescription(strings.TrimSpace(id), text); err != nil {
			return err
		}
	}
	if opts.category != "" {
		if _, err := p.AssignCategoryToSelected(opts.category); err != nil {
			return err
		}
	}
	if opts.hide {
		p.HideSelected()
	}
	return nil
}

func inImportDir(root, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == filepath.Join(root, "import")
}
