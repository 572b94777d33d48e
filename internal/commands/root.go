// Package commands implements the tally command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
)

// globalFlags are shared by every subcommand that opens a repo.
type globalFlags struct {
	repo     string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Bank import rules and statement reconciliation for a plain-file ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.repo, "repo", ".", "path to the tally repo")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides tally.yaml)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand(&g))
	rootCmd.AddCommand(newReconcileCommand(&g))
	rootCmd.AddCommand(newRulesCommand(&g))
	rootCmd.AddCommand(newBanksCommand(&g))
	rootCmd.AddCommand(newAccountsCommand(&g))

	return rootCmd
}
