package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/activity"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
)

func newRulesCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage import processing rules",
	}
	cmd.AddCommand(newRulesListCommand(g))
	cmd.AddCommand(newRulesCheckCommand(g))
	cmd.AddCommand(newRulesActivateCommand(g, true))
	cmd.AddCommand(newRulesActivateCommand(g, false))
	return cmd
}

func newRulesListCommand(g *globalFlags) *cobra.Command {
	var bank string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}

			var list []model.ProcessingRule
			for _, r := range p.rules.All() {
				if bank == "" || r.BankConfigID == bank {
					list = append(list, r)
				}
			}
			sort.SliceStable(list, func(i, j int) bool {
				if list[i].BankConfigID != list[j].BankConfigID {
					return list[i].BankConfigID < list[j].BankConfigID
				}
				return list[i].RuleOrder < list[j].RuleOrder
			})

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No rules")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BANK\tORDER\tID\tNAME\tTYPE\tACTIVE\tWHEN")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%t\t%s\n",
					r.BankConfigID, r.RuleOrder, r.ID, r.Name, r.Type, r.Active, describeConditions(r))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "only rules of this bank configuration")
	return cmd
}

func describeConditions(r model.ProcessingRule) string {
	if len(r.Conditions) == 0 {
		return "always"
	}
	parts := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		parts[i] = strings.TrimSpace(fmt.Sprintf("%s %s %q", c.Field, c.Operator, c.Value))
	}
	logic := " AND "
	if l, err := rules.ParseLogic(r.ConditionLogic); err == nil && l == rules.LogicAny {
		logic = " OR "
	}
	return strings.Join(parts, logic)
}

func newRulesCheckCommand(g *globalFlags) *cobra.Command {
	var bank string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile the active rules of a bank and report problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}
			if bank == "" {
				bank = p.cfg.Import.DefaultBank
			}
			cfg, err := p.banks.Get(bank)
			if err != nil {
				return err
			}

			compiled, err := rules.NewEngine(cfg.FieldMapping).Prepare(p.rules.ActiveForBank(cfg.ID))
			if err != nil {
				return fmt.Errorf("rules for %s are invalid:\n%w", cfg.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d active rules for %s compile cleanly\n", len(compiled), cfg.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "bank configuration id (default from tally.yaml)")
	return cmd
}

func newRulesActivateCommand(g *globalFlags, active bool) *cobra.Command {
	use, short := "disable <rule-id>", "Stop applying a rule"
	if active {
		use, short = "enable <rule-id>", "Start applying a rule"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(g.repo)
			if err != nil {
				return err
			}

			var found *model.ProcessingRule
			for _, r := range p.rules.All() {
				if r.ID == args[0] {
					found = &r
					break
				}
			}
			if found == nil {
				return fmt.Errorf("rule %q not found", args[0])
			}
			if found.Active == active {
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %s is already %s\n", found.ID, activeWord(active))
				return nil
			}

			found.Active = active
			if err := p.rules.Put(*found, p.now().UTC()); err != nil {
				return err
			}
			if err := p.rules.Save(); err != nil {
				return err
			}
			if _, err := p.record(activity.ActionRules, fmt.Sprintf("%s rule %q", activeWord(active), found.Name), found.ID,
				fmt.Sprintf("rules: %s %s", activeWord(active), found.Name)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %s\n", found.ID, activeWord(active))
			return nil
		},
	}
}

func activeWord(active bool) string {
	if active {
		return "enabled"
	}
	return "disabled"
}
