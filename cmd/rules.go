package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/report"
)

var rulesCmd = &cobra.Command{
	Use:   "rules <rules>",
	Short: "List the reachable rules of a transfer file",
	Long: `Prints every rule the pattern automaton can accept, sorted by rule id: the
id, the category sequence and the rule comment. Rules replaced by a later
rule with the same pattern are not listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRules,
}

func init() {
	addOutputFlags(rulesCmd)
	rulesCmd.Flags().StringP("output", "o", "", "write the listing to this file instead of stdout")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	eng := buildEngine(doc, cfg)
	if err := report.WriteListing(out, eng.Automaton().Listing()); err != nil {
		closeOut() //nolint:errcheck
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
