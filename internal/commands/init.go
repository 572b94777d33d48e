package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/activity"
	"github.com/cleared-dev/tally/internal/banks"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/currency"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/rules"
)

type initOptions struct {
	name         string
	baseCurrency string
	noGit        bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally repo",
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

			return runInit(cmd.OutOrStdout(), absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.baseCurrency, "base-currency", "USD", "ISO code of the base currency")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(out io.Writer, dir string, opts initOptions) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already contains %s", dir, config.FileName)
	}

	dirs := []string{
		"accounts",
		"banks",
		"rules",
		"ledger",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(opts.name, opts.baseCurrency)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	currencies, err := currency.NewRegistry(cfg.Currency)
	if err != nil {
		return err
	}
	cfg.Import.DefaultBank = banks.ChaseChecking().ID
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	svc := accounts.NewService(accounts.Defaults(currencies.Base().ID))
	if err := svc.Save(dir); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}

	bankStore, err := banks.Load(dir)
	if err != nil {
		return err
	}
	for _, b := range banks.Presets() {
		if err := bankStore.Put(b); err != nil {
			return fmt.Errorf("adding bank preset %s: %w", b.ID, err)
		}
	}
	if err := bankStore.Save(); err != nil {
		return err
	}

	ruleStore, err := rules.Load(dir)
	if err != nil {
		return err
	}
	if err := ruleStore.Save(); err != nil {
		return err
	}

	if err := writeEmptyLedger(dir); err != nil {
		return err
	}

	gitignore := "import/*.csv\nimport/*.xlsx\nimport/*.txt\nimport/*.tsv\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if err := activity.Open(dir).Append(activity.Entry{
		Timestamp: timeNow().UTC(),
		Actor:     actor,
		Action:    activity.ActionInit,
		Details:   fmt.Sprintf("initialized %s with base currency %s", opts.name, cfg.Currency.Base),
	}); err != nil {
		return err
	}

	if opts.noGit {
		fmt.Fprintf(out, "Initialized tally repo at %s\n", dir)
		return nil
	}

	if err := gitops.Init(dir); err != nil {
		return err
	}
	c := gitops.Committer{Dir: dir, AuthorName: cfg.Git.AuthorName, AuthorEmail: cfg.Git.AuthorEmail}
	hash, err := c.Commit("init: Initialize " + opts.name)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized tally repo at %s (%s)\n", dir, hash)
	return nil
}

func writeEmptyLedger(dir string) error {
	path := filepath.Join(dir, ledger.FilePath)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger: %w", err)
	}
	defer f.Close()
	if err := ledger.WriteTransactions(f, nil); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}
