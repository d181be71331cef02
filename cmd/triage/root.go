// triage runs the symptom triage advisor from the command line.
//
// Usage:
//
//	triage check --symptom fever --symptom headache [--duration "1 day"] [--severity severe] [--rules rules.yaml] [--json]
//	triage rules list [--rules rules.yaml]
//	triage rules validate <file>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "triage",
		Short: "Rule-based symptom triage",
		Long:  "triage maps reported symptoms to a probable condition, risk tier and next steps\nusing an ordered condition rule table.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		Version:      version,
	}
	root.AddCommand(newCheckCmd())
	root.AddCommand(newRulesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
