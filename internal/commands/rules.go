package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/rules"
)

func newRulesCommand(repoDir *string) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Learned categorization rules",
	}
	rulesCmd.AddCommand(newRulesSuggestCommand(repoDir), newRulesListCommand(repoDir))
	return rulesCmd
}

func newRulesSuggestCommand(repoDir *string) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Mine the action log for recurring decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proj, err := openProject(ctx, *repoDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer proj.Close()

			actions, err := proj.actions.All()
			if err != nil {
				return err
			}
			all, err := proj.store.All(ctx)
			if err != nil {
				return err
			}

			sugs := rules.NewMiner(proj.cfg.Rules, nil).Suggest(actions, all)
			printSuggestions(cmd.OutOrStdout(), sugs)
			if !save || len(sugs) == 0 {
				return nil
			}

			n, err := proj.rules.SaveSuggestions(sugs)
			if err != nil {
				return err
			}
			proj.log.Info().Int("rules", n).Str("path", proj.rules.Path()).Msg("rules saved")
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d rules to %s\n", n, rulesFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the suggestions as rules")
	return cmd
}

func newRulesListCommand(repoDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print stored rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := openProject(cmd.Context(), *repoDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer proj.Close()

			rs, err := proj.rules.Load()
			if err != nil {
				return err
			}
			printRules(cmd.OutOrStdout(), rs)
			return nil
		},
	}
}
