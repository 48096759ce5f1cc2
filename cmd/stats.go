package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/store"
	"github.com/papapumpkin/rulecover/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show rule usage and uncovered lines of a recorded run",
	Long: `Reads a results database written by "rulecover run --db" and prints, for one
run, how often each rule was used by the LRLM coverages and which lines had
no coverage. Without --run the most recent run is shown.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().String("db", "", "results database (default from config)")
	statsCmd.Flags().String("run", "", "run id to show (default: most recent)")
	statsCmd.Flags().Int("limit", 20, "uncovered lines to list (0: all)")
	statsCmd.Flags().Bool("list", false, "list recorded runs instead")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DB == "" {
		return errors.New("stats: no database; pass --db or set db in the config")
	}
	printer := printerFor(cmd)

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if list, _ := cmd.Flags().GetBool("list"); list {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = -1
		}
		runs, err := db.Runs(ctx, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %-14s  %s  %s/%s covered\n", r.ID, humanize.Time(r.StartedAt), r.RulesPath,
				humanize.Comma(int64(r.Covered)), humanize.Comma(int64(r.Lines)))
		}
		return nil
	}

	var run store.Run
	if id, _ := cmd.Flags().GetString("run"); id != "" {
		run, err = db.Run(ctx, id)
	} else {
		run, err = db.LatestRun(ctx)
	}
	if err != nil {
		return err
	}

	usage, err := db.RuleUsage(ctx, run.ID)
	if err != nil {
		return err
	}
	uncovered, err := db.Uncovered(ctx, run.ID)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	ui.NewWithWriter(cmd.OutOrStdout()).Stats(run, usage, uncovered, limit)
	return nil
}
