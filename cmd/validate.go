package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/transfer"
)

var validateCmd = &cobra.Command{
	Use:   "validate <rules>...",
	Short: "Check transfer files for undeclared categories and unreachable rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := printerFor(cmd)
		failed := 0
		for _, path := range args {
			doc, err := loadDocument(path)
			if err != nil {
				printer.Error(err.Error())
				failed++
				continue
			}
			errs := transfer.Validate(doc)
			printer.ValidateResult(path, len(doc.Rules), errs)
			if transfer.HasErrors(errs) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
