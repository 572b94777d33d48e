package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/activity"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/sheet"
)

type importOptions struct {
	bank            string
	commit          bool
	acceptWarnings  bool
	allowDuplicates bool
	json            bool
}

func newImportCommand(g *globalFlags) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Map, run rules on and validate bank exports",
		Long: `Reads the given bank exports, or every supported file in import/, maps
them with a bank configuration, applies the processing rules, flags
duplicates of ledger transactions and prints the review queue.

With --commit, accepted rows are appended to the ledger and files taken
from import/ are moved to import/processed/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, g, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.bank, "bank", "", "bank configuration id (default from tally.yaml)")
	cmd.Flags().BoolVar(&opts.commit, "commit", false, "append accepted rows to the ledger")
	cmd.Flags().BoolVar(&opts.acceptWarnings, "accept-warnings", false, "commit rows with warnings")
	cmd.Flags().BoolVar(&opts.allowDuplicates, "allow-duplicates", false, "commit rows flagged as duplicates")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")

	return cmd
}

// importReport is the --json output.
type importReport struct {
	Bank       string                    `json:"bank"`
	Outcome    importer.Outcome          `json:"outcome"`
	Stats      importer.Stats            `json:"stats"`
	Rows       []model.ImportTransaction `json:"rows"`
	FileErrors []string                  `json:"fileErrors,omitempty"`
	Hints      []string                  `json:"hints,omitempty"`
	Commit     *commitReport             `json:"commit,omitempty"`
}

type commitReport struct {
	Added   int        `json:"added"`
	Skipped int        `json:"skipped"`
	Hash    string     `json:"hash,omitempty"`
	Kept    []keptFile `json:"kept,omitempty"`
}

// keptFile is an export left in import/ after a commit.
type keptFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func runImport(cmd *cobra.Command, g *globalFlags, opts importOptions, args []string) error {
	p, err := openProject(g.repo)
	if err != nil {
		return err
	}
	log := p.logger(cmd.ErrOrStderr(), g.logLevel)
	ctx := logger.WithContext(cmd.Context(), log)

	bankID := opts.bank
	if bankID == "" {
		bankID = p.cfg.Import.DefaultBank
	}
	if bankID == "" {
		return fmt.Errorf("no bank given: pass --bank or set import.default_bank")
	}
	bank, err := p.banks.Get(bankID)
	if err != nil {
		return err
	}

	readers := sheet.DefaultRegistry()
	paths := args
	fromImportDir := len(args) == 0
	if fromImportDir {
		found, err := importer.Scan(p.root, readers)
		if err != nil {
			return err
		}
		for _, f := range found {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files to import: pass file paths or put exports in %s", filepath.Join(p.root, "import"))
	}

	inputs, err := importer.OpenFiles(paths)
	if err != nil {
		return err
	}
	existing, err := p.ledger.All()
	if err != nil {
		return err
	}

	pipeline := importer.NewPipeline(bank, p.rules.ActiveForBank(bank.ID), existing, p.currencies, importer.Options{
		Accounts: p.accounts,
		Readers:  readers,
		Now:      p.now,
		Progress: func(done, total int) {
			log.Debug().Int("done", done).Int("total", total).Msg("import progress")
		},
	})
	res, err := pipeline.Process(ctx, inputs)
	if err != nil {
		return err
	}

	report := importReport{
		Bank:    bank.ID,
		Outcome: res.Outcome,
		Stats:   res.Stats,
		Rows:    res.Parsed,
		Hints:   res.Hints,
	}
	for _, fe := range res.FileErrors {
		report.FileErrors = append(report.FileErrors, fe.Error())
	}

	if opts.commit && res.Outcome == importer.OutcomeOK {
		policy := importer.CommitPolicy{
			AcceptWarnings:  opts.acceptWarnings || p.cfg.Import.AcceptWarnings,
			AllowDuplicates: opts.allowDuplicates,
		}
		cr, err := importer.Commit(p.ledger, res.Valid, policy)
		if err != nil {
			return err
		}
		report.Commit = &commitReport{Added: len(cr.Added), Skipped: cr.Skipped + len(res.Parsed) - len(res.Valid)}

		if fromImportDir {
			kept, err := moveProcessed(p.root, inputs, res, policy)
			if err != nil {
				return err
			}
			report.Commit.Kept = kept
		}

		names := make([]string, len(inputs))
		for i, in := range inputs {
			names[i] = in.Name
		}
		details := fmt.Sprintf("added %d, skipped %d from %s", report.Commit.Added, report.Commit.Skipped, bank.ID)
		hash, err := p.record(activity.ActionImport, details, strings.Join(names, ";"),
			fmt.Sprintf("import: %d transactions from %s", report.Commit.Added, strings.Join(names, ", ")))
		if err != nil {
			return err
		}
		report.Commit.Hash = hash
	}

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printImport(cmd.OutOrStdout(), p, report)
	return nil
}

// moveProcessed moves committed exports to import/processed/. Files that
// failed to read, or that still hold rows a looser policy would commit, stay
// in import/.
func moveProcessed(root string, inputs []importer.InputFile, res *importer.Result, policy importer.CommitPolicy) ([]keptFile, error) {
	failed := make(map[string]bool, len(res.FileErrors))
	for _, fe := range res.FileErrors {
		failed[fe.File] = true
	}
	held := policy.HeldBack(res.Valid)

	var kept []keptFile
	for _, in := range inputs {
		switch {
		case failed[in.Name]:
			kept = append(kept, keptFile{Name: in.Name, Reason: "could not be read"})
		case held[in.Name] > 0:
			kept = append(kept, keptFile{Name: in.Name, Reason: fmt.Sprintf(
				"%d rows held back, rerun with --accept-warnings or --allow-duplicates", held[in.Name])})
		default:
			if err := importer.MarkProcessed(root, in.Name); err != nil {
				return nil, err
			}
		}
	}
	return kept, nil
}

var (
	statusReady   = color.New(color.FgGreen).SprintFunc()
	statusWarning = color.New(color.FgYellow).SprintFunc()
	statusError   = color.New(color.FgRed).SprintFunc()
	heading       = color.New(color.Bold).SprintFunc()
)

func colorStatus(s model.ImportStatus) string {
	switch s {
	case model.ImportReady:
		return statusReady(string(s))
	case model.ImportWarning:
		return statusWarning(string(s))
	default:
		return statusError(string(s))
	}
}

func printImport(w io.Writer, p *project, r importReport) {
	fmt.Fprintf(w, "%s %s\n\n", heading("Import review for"), r.Bank)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tDATE\tAMOUNT\tDESCRIPTION\tSUBCATEGORY\tRULES\tNOTES")
	for _, tx := range r.Rows {
		amount := "?"
		if tx.Amount.Valid {
			amount = p.currencies.Format(tx.Amount.Decimal, tx.CurrencyID)
		}
		var applied []string
		for _, ar := range tx.RulesApplied {
			applied = append(applied, ar.Name)
		}
		notes := append(append([]string{}, tx.Validation.Errors...), tx.Validation.Warnings...)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			colorStatus(tx.Status), tx.Date, amount, tx.Description, tx.SubcategoryID,
			strings.Join(applied, ", "), strings.Join(notes, "; "))
	}
	tw.Flush()

	s := r.Stats
	fmt.Fprintf(w, "\n%d files, %d rows parsed, %d valid, %d skipped by rules, %d duplicates\n",
		s.Files, s.TotalParsed, s.Valid, s.Skipped, s.Duplicates)
	fmt.Fprintf(w, "%s ready, %s with warnings, %s with errors, %d rule applications on %d rows\n",
		statusReady(s.Ready), statusWarning(s.Warnings), statusError(s.Errors), s.RuleApplications, s.WithRules)

	for _, fe := range r.FileErrors {
		fmt.Fprintf(w, "%s %s\n", statusError("file error:"), fe)
	}
	if r.Outcome == importer.OutcomeNoValid {
		fmt.Fprintln(w, statusError("\nNo valid transactions found."))
		for _, h := range r.Hints {
			fmt.Fprintf(w, "  - %s\n", h)
		}
	}
	if r.Commit != nil {
		fmt.Fprintf(w, "\nCommitted %d transactions, skipped %d", r.Commit.Added, r.Commit.Skipped)
		if r.Commit.Hash != "" {
			fmt.Fprintf(w, " (%s)", r.Commit.Hash)
		}
		fmt.Fprintln(w)
		for _, k := range r.Commit.Kept {
			fmt.Fprintf(w, "Left %s in import/: %s\n", k.Name, k.Reason)
		}
	}
}
