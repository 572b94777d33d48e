package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBanksCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "Inspect bank export configurations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bank configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}

			list := p.banks.All()
			sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDATES\tAMOUNTS\tACCOUNT\tRULES")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", b.ID, b.Name, b.Settings.DateFormat,
					b.Settings.AmountHandling, b.Settings.AccountID, len(p.rules.ActiveForBank(b.ID)))
			}
			return tw.Flush()
		},
	})
	return cmd
}
