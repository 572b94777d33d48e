package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/model"
)

func newAccountsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect ledger accounts",
	}

	var accountType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List ledger accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}

			accts := p.accounts.All()
			if accountType != "" {
				t := model.AccountType(accountType)
				if !t.Valid() {
					return fmt.Errorf("unknown account type %q", accountType)
				}
				accts = p.accounts.ByType(t)
			}
			if len(accts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCURRENCY\tDESCRIPTION")
			for _, a := range accts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, a.CurrencyID, a.Description)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&accountType, "type", "", "only accounts of this type (checking, savings, credit_card, cash, investment, loan)")
	cmd.AddCommand(list)
	return cmd
}
