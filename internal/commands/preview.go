package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/preview"
)

func newPreviewCommand(repoDir *string) *cobra.Command {
	var account string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview <file.csv>",
		Short: "Show what importing a bank CSV would do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proj, err := openProject(ctx, *repoDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer proj.Close()

			acct, err := proj.accountFor(account)
			if err != nil {
				return err
			}
			svc, err := proj.previewService()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			p, err := svc.Generate(ctx, filepath.Base(args[0]), data, acct)
			if err != nil {
				return err
			}

			if asJSON {
				return writePreviewJSON(cmd.OutOrStdout(), p)
			}
			printPreview(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "target account (default import.default_account)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preview as JSON")

	return cmd
}

type previewJSON struct {
	ID        string          `json:"id"`
	FileName  string          `json:"fileName"`
	AccountID string          `json:"accountId"`
	Rows      []preview.Row   `json:"rows"`
	Summary   preview.Summary `json:"summary"`
}

func writePreviewJSON(w io.Writer, p *preview.Preview) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(previewJSON{
		ID:        p.ID,
		FileName:  p.FileName,
		AccountID: p.AccountID,
		Rows:      p.Rows(),
		Summary:   p.Summary(),
	})
}
