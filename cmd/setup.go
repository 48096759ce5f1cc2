package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/config"
	"github.com/papapumpkin/rulecover/internal/coverage"
	"github.com/papapumpkin/rulecover/internal/engine"
	"github.com/papapumpkin/rulecover/internal/report"
	"github.com/papapumpkin/rulecover/internal/stream"
	"github.com/papapumpkin/rulecover/internal/transfer"
	"github.com/papapumpkin/rulecover/internal/ui"
)

// flagKeys maps command-line flags to the config fields they override.
var flagKeys = []struct {
	flag  string
	apply func(cmd *cobra.Command, cfg *config.Config)
}{
	{"format", func(cmd *cobra.Command, cfg *config.Config) { cfg.Format, _ = cmd.Flags().GetString("format") }},
	{"label", func(cmd *cobra.Command, cfg *config.Config) { cfg.Label, _ = cmd.Flags().GetString("label") }},
	{"workers", func(cmd *cobra.Command, cfg *config.Config) { cfg.Workers, _ = cmd.Flags().GetInt("workers") }},
	{"max-coverages", func(cmd *cobra.Command, cfg *config.Config) { cfg.MaxCoverages, _ = cmd.Flags().GetInt("max-coverages") }},
	{"lemma-source", func(cmd *cobra.Command, cfg *config.Config) { cfg.LemmaSource, _ = cmd.Flags().GetString("lemma-source") }},
	{"rules-out", func(cmd *cobra.Command, cfg *config.Config) { cfg.RulesOut, _ = cmd.Flags().GetString("rules-out") }},
	{"telemetry", func(cmd *cobra.Command, cfg *config.Config) { cfg.Telemetry, _ = cmd.Flags().GetString("telemetry") }},
	{"db", func(cmd *cobra.Command, cfg *config.Config) { cfg.DB, _ = cmd.Flags().GetString("db") }},
	{"addr", func(cmd *cobra.Command, cfg *config.Config) { cfg.Serve.Addr, _ = cmd.Flags().GetString("addr") }},
	{"verbose", func(cmd *cobra.Command, cfg *config.Config) { cfg.Verbose, _ = cmd.Flags().GetBool("verbose") }},
}

// loadConfig loads the configuration and applies the flags the user set on
// cmd, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyFlagOverrides applies explicitly set CLI flag values to the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	for _, k := range flagKeys {
		if f := cmd.Flags().Lookup(k.flag); f != nil && f.Changed {
			k.apply(cmd, cfg)
		}
	}
	if cmd.Flags().Changed("all") || cmd.Flags().Changed("lrlm") {
		all, _ := cmd.Flags().GetBool("all")
		lrlm, _ := cmd.Flags().GetBool("lrlm")
		cfg.Mode = string(report.ModeFromFlags(all, lrlm))
	}
}

// addOutputFlags registers the flags shared by commands that cover lines.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("all", false, "print every coverage")
	cmd.Flags().Bool("lrlm", false, "print only left-to-right longest-match coverages")
	cmd.Flags().String("format", "", "output format: text or json")
	cmd.Flags().String("label", "", "segment label in text output: id or comment")
	cmd.Flags().Int("workers", 0, "lines covered concurrently")
	cmd.Flags().Int("max-coverages", 0, "fail a line with more coverages than this (0: no limit)")
	cmd.Flags().String("lemma-source", "", "lemma matched by categories: surface or reading")
}

// loadDocument reads a rule document from the OS filesystem.
func loadDocument(path string) (*transfer.Document, error) {
	doc, err := transfer.Load(afero.NewOsFs(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return doc, nil
}

// buildEngine compiles doc with the search settings of cfg.
func buildEngine(doc *transfer.Document, cfg config.Config) *engine.Engine {
	return engine.New(doc, engine.Options{
		Lemmas: stream.LemmaSource(cfg.LemmaSource),
		Search: coverage.Options{MaxCoverages: cfg.MaxCoverages},
	})
}

// reportOptions converts the validated config to writer options.
func reportOptions(cfg config.Config) (report.Format, report.Options) {
	return report.Format(cfg.Format), report.Options{
		Mode:  report.Mode(cfg.Mode),
		Label: report.Label(cfg.Label),
	}
}

// openOutput returns the file named by the --output flag, or stdout.
func openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := afero.NewOsFs().Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}

// stdinIsPiped reports whether stdin is a pipe or file rather than a terminal.
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer ui.UI) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// printerFor returns a Printer on the command's error stream.
func printerFor(cmd *cobra.Command) *ui.Printer {
	return ui.NewWithWriter(cmd.ErrOrStderr())
}
