package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nabha-triage/internal/triage"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate condition rule tables",
	}
	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesValidateCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(rulesPath)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "#\tKey\tCondition\tRisk\tUrgency\n")
			fmt.Fprintf(w, "-\t---\t---------\t----\t-------\n")
			for i, r := range table.All() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Key, r.Condition, r.Risk, r.Urgency)
			}
			w.Flush()

			fmt.Fprintf(cmd.OutOrStdout(), "\nRed flags: %s\n", strings.Join(table.RedFlags(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule table file; built-in table when empty")
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a rule table file loads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := triage.LoadRulesFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", args[0], table.Len())
			return nil
		},
	}
}
