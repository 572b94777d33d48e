package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/activity"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/reconcile"
)

func newReconcileCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile ledger transactions against a bank statement",
	}
	cmd.AddCommand(newReconcileCandidatesCommand(g))
	cmd.AddCommand(newReconcileRunCommand(g))
	cmd.AddCommand(newReconcileShowCommand(g))
	return cmd
}

func newReconcileShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <reference>",
		Short: "Show the transactions and history of a reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}
			reference := args[0]

			txns, err := p.ledger.Filter(func(t model.LedgerTransaction) bool {
				return t.ReconciliationReference == reference
			})
			if err != nil {
				return err
			}
			entries, err := p.activity.ByReference(reference)
			if err != nil {
				return err
			}
			if len(txns) == 0 && len(entries) == 0 {
				return fmt.Errorf("no reconciliation %q", reference)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n\n", heading("Reconciliation"), reference)
			if len(txns) > 0 {
				if err := p.printTransactions(out, txns); err != nil {
					return err
				}
			}
			if len(entries) > 0 {
				fmt.Fprintln(out, "\nHistory:")
				for _, e := range entries {
					fmt.Fprintf(out, "  %s  %s  %s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.Details)
				}
			}
			return nil
		},
	}
}

// printTransactions writes ledger transactions as a table.
func (p *project) printTransactions(w io.Writer, txns []model.LedgerTransaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tDESCRIPTION\tRECONCILED")
	for _, t := range txns {
		amount := p.currencies.Format(t.Amount, firstNonBlank(t.CurrencyID, p.accountCurrency(t.AccountID)))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, amount, t.Description, t.ReconciliationReference)
	}
	return tw.Flush()
}

func newReconcileCandidatesCommand(g *globalFlags) *cobra.Command {
	var account string
	var all bool

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List transactions that can be reconciled",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}
			if !p.accounts.Exists(account) {
				return fmt.Errorf("account %q does not exist", account)
			}
			txns, err := reconcile.Candidates(p.ledger, account, all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintf(out, "No transactions to reconcile on %s\n", account)
				return nil
			}
			return p.printTransactions(out, txns)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().BoolVar(&all, "all", false, "include reconciled transactions")
	return cmd
}

type reconcileRunOptions struct {
	account        string
	statementTotal string
	reference      string
	selected       []string
	yes            bool
}

func newReconcileRunCommand(g *globalFlags) *cobra.Command {
	var opts reconcileRunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile selected transactions against a statement total",
		Long: `Selects the given transactions, compares their sum with the statement
total and tags them with the reconciliation reference. A difference of
0.01 or more asks for confirmation unless --yes is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.account, "account", "", "account id (required)")
	cmd.Flags().StringVar(&opts.statementTotal, "statement-total", "", "total reported by the bank statement (required)")
	cmd.Flags().StringVar(&opts.reference, "reference", "", "reconciliation reference (generated when empty)")
	cmd.Flags().StringSliceVar(&opts.selected, "select", nil, "transaction ids to reconcile")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "complete without asking when out of balance")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("statement-total")
	return cmd
}

func runReconcile(cmd *cobra.Command, g *globalFlags, opts reconcileRunOptions) error {
	p, err := openProject(g.repo)
	if err != nil {
		return err
	}
	log := p.logger(cmd.ErrOrStderr(), g.logLevel)
	out := cmd.OutOrStdout()

	s := reconcile.NewSession(p.ledger, reconcile.Options{Accounts: p.accounts, Now: p.now, Logger: &log})
	reference := opts.reference
	if strings.TrimSpace(reference) == "" {
		reference = reconcile.GenerateReference(p.now())
	}
	if err := s.Start(reference, opts.statementTotal, opts.account); err != nil {
		return err
	}
	for _, txID := range opts.selected {
		txID = strings.TrimSpace(txID)
		if txID == "" {
			continue
		}
		if s.IsSelected(txID) {
			log.Warn().Str("transaction", txID).Msg("transaction selected more than once")
			continue
		}
		if err := s.Toggle(txID); err != nil {
			return err
		}
	}

	currencyID := p.accountCurrency(opts.account)
	money := func(sum reconcile.Summary) (string, string, string) {
		return p.currencies.Format(sum.StatementTotal, currencyID),
			p.currencies.Format(sum.RunningTotal, currencyID),
			p.currencies.Format(sum.Difference, currencyID)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	confirm := func(sum reconcile.Summary) bool {
		if opts.yes {
			return true
		}
		_, _, diff := money(sum)
		fmt.Fprintf(out, "Selection is off by %s. Complete anyway? [y/N] ", diff)
		answer, _ := in.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	done, err := s.Complete(confirm)
	var ce *reconcile.CommitError
	switch {
	case errors.Is(err, reconcile.ErrNotConfirmed):
		fmt.Fprintln(out, "Reconciliation cancelled, nothing was written.")
		return err
	case errors.As(err, &ce):
		fmt.Fprintf(out, "Reconciled %d of %d transactions before %s failed; run again to finish.\n",
			len(ce.Committed), len(s.Selected()), ce.Failed)
		return err
	case err != nil:
		return err
	}

	statement, running, diff := money(done.Summary)
	fmt.Fprintf(out, "Reconciled %d transactions on %s with %s\n", len(done.TransactionIDs), done.AccountID, done.Reference)
	fmt.Fprintf(out, "  statement %s, selected %s, difference %s\n", statement, running, diff)

	details := fmt.Sprintf("reconciled %d transactions on %s, difference %s", len(done.TransactionIDs), done.AccountID, diff)
	if done.Forced {
		details += " (confirmed)"
	}
	hash, err := p.record(activity.ActionReconcile, details, done.Reference,
		fmt.Sprintf("reconcile: %s (%d transactions)", done.Reference, len(done.TransactionIDs)))
	if err != nil {
		return err
	}
	if hash != "" {
		fmt.Fprintf(out, "  committed %s\n", hash)
	}
	return nil
}

// accountCurrency returns the currency id of an account, or the base
// currency.
func (p *project) accountCurrency(accountID string) string {
	if a, ok := p.accounts.Get(accountID); ok && a.CurrencyID != "" {
		return a.CurrencyID
	}
	return p.currencies.Base().ID
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
