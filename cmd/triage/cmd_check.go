package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nabha-triage/internal/platform/logging"
	"nabha-triage/internal/triage"
)

type checkFlags struct {
	symptoms []string
	duration string
	severity string
	rules    string
	asJSON   bool
}

func newCheckCmd() *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Triage a set of symptoms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.symptoms, "symptom", "s", nil, "Reported symptom (repeatable)")
	fl.StringVar(&f.duration, "duration", "", "How long the symptoms have lasted, e.g. \"2-3 days\"")
	fl.StringVar(&f.severity, "severity", "", "Self-rated severity: mild, moderate or severe")
	fl.StringVar(&f.rules, "rules", "", "Rule table file (YAML or JSON); built-in table when empty")
	fl.BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("symptom")
	return cmd
}

func runCheck(cmd *cobra.Command, f checkFlags) error {
	logger := logging.NewWithOutput("warn", "text", cmd.ErrOrStderr())

	table, err := loadTable(f.rules)
	if err != nil {
		return err
	}

	severity, ok := triage.ParseSeverity(f.severity)
	if !ok {
		logger.WithField("severity", f.severity).Warn("Ignoring unrecognized severity")
	}

	advisor := triage.NewAdvisor(table, triage.WithLogger(logger))
	res, err := advisor.Triage(triage.NewSymptomSet(f.symptoms...), triage.Context{
		Duration: f.duration,
		Severity: severity,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "Possible condition: %s\n", res.Condition)
	fmt.Fprintf(out, "Risk:               %s\n", res.Risk)
	fmt.Fprintf(out, "Recommendation:     %s\n", res.Advice)
	fmt.Fprintf(out, "Next steps:         %s\n", res.Urgency)
	fmt.Fprintf(out, "Based on:           %s | Duration: %s | Severity: %s\n",
		strings.Join(res.Symptoms, ", "), res.Duration, res.Severity)
	if res.Risk == triage.RiskHigh {
		fmt.Fprintln(out, "\nWARNING: this appears to be a serious condition requiring immediate medical attention.")
	}
	return nil
}

func loadTable(path string) (*triage.RuleTable, error) {
	if path == "" {
		return triage.DefaultRules(), nil
	}
	return triage.LoadRulesFile(path)
}
