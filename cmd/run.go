package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/config"
	"github.com/papapumpkin/rulecover/internal/corpus"
	"github.com/papapumpkin/rulecover/internal/engine"
	"github.com/papapumpkin/rulecover/internal/pattern"
	"github.com/papapumpkin/rulecover/internal/report"
	"github.com/papapumpkin/rulecover/internal/store"
	"github.com/papapumpkin/rulecover/internal/telemetry"
	"github.com/papapumpkin/rulecover/internal/transfer"
	"github.com/papapumpkin/rulecover/internal/ui"
	"github.com/papapumpkin/rulecover/internal/watch"
)

// ErrUncovered is returned by run --fail-uncovered when a line has no coverage.
var ErrUncovered = errors.New("uncovered lines found")

// ErrNoInput is returned when no input files are named and stdin is a terminal.
var ErrNoInput = errors.New("no input: name files or directories, or pipe lines on stdin")

var runCmd = &cobra.Command{
	Use:   "run <rules> [input...]",
	Short: "Cover analysed text with the rules of a transfer file",
	Long: `Reads lines in stream format (^surface/lemma<tag>...$) from the named files
and directories, or from stdin when none are named or the name is "-", and
prints every coverage of each line and its LRLM subset.

The rule listing is written to rules_out (default rules.txt) on every run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	addOutputFlags(runCmd)
	runCmd.Flags().StringP("output", "o", "", "write coverages to this file instead of stdout")
	runCmd.Flags().String("rules-out", "", "rule listing file (empty string keeps the config value)")
	runCmd.Flags().String("telemetry", "", "append JSONL run events to this file")
	runCmd.Flags().String("db", "", "record the run in this SQLite database")
	runCmd.Flags().Bool("watch", false, "re-run whenever the rules or inputs change")
	runCmd.Flags().Bool("fail-uncovered", false, "exit non-zero when a line has no coverage")

	rootCmd.AddCommand(runCmd)
}

// runJob is one coverage run over a fixed rule file and input list.
type runJob struct {
	cfg       config.Config
	printer   *ui.Printer
	rulesPath string
	inputs    []string
	out       io.Writer
	stdin     io.Reader
	emitter   *telemetry.Emitter
	db        *store.Store
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printer := printerFor(cmd)

	job := &runJob{
		cfg:       cfg,
		printer:   printer,
		rulesPath: args[0],
		inputs:    args[1:],
		stdin:     cmd.InOrStdin(),
	}
	if len(job.inputs) == 0 {
		if !stdinIsPiped() {
			return ErrNoInput
		}
		job.inputs = []string{"-"}
	}

	out, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // best-effort on error paths
	job.out = out

	if cfg.Telemetry != "" {
		em, err := telemetry.NewEmitter(cfg.Telemetry)
		if err != nil {
			return err
		}
		defer em.Close()
		job.emitter = em
	}

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	if cfg.DB != "" {
		db, err := store.Open(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		job.db = db
	}

	watching, _ := cmd.Flags().GetBool("watch")
	if watching {
		return job.watchLoop(ctx)
	}

	tally, err := job.cover(ctx)
	if err != nil {
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if fail, _ := cmd.Flags().GetBool("fail-uncovered"); fail && tally.Uncovered+tally.Failed > 0 {
		return fmt.Errorf("%w: %d of %d line(s)", ErrUncovered, tally.Uncovered+tally.Failed, tally.Lines)
	}
	return nil
}

// cover performs one complete run: load rules, write the listing, cover
// every input line and record the results.
func (j *runJob) cover(ctx context.Context) (report.Tally, error) {
	start := time.Now()
	var tally report.Tally

	doc, err := loadDocument(j.rulesPath)
	if err != nil {
		return tally, err
	}
	if problems := transfer.Validate(doc); len(problems) > 0 {
		j.printer.Info(fmt.Sprintf("%d rule file problem(s); see `rulecover validate %s`", len(problems), j.rulesPath))
	}

	eng := buildEngine(doc, j.cfg)
	listing := eng.Automaton().Listing()
	if err := j.writeListing(listing); err != nil {
		return tally, err
	}

	sources, err := j.expandInputs()
	if err != nil {
		return tally, err
	}

	runID := telemetry.NewRunID()
	j.printer.RunStart(runID, j.rulesPath, eng.Automaton().Rules(), eng.Categories())
	j.emit(telemetry.Event{Kind: telemetry.KindRunStart, RunID: runID, Source: j.rulesPath, Data: map[string]any{
		"rules":      eng.Automaton().Rules(),
		"categories": eng.Categories(),
		"inputs":     len(sources),
	}})
	if j.db != nil {
		if err := j.db.BeginRun(ctx, runID, j.rulesPath); err != nil {
			return tally, err
		}
		if err := j.db.RecordRules(ctx, runID, listing); err != nil {
			return tally, err
		}
	}

	format, opts := reportOptions(j.cfg)
	writer := report.New(j.out, format, opts)

	lines := make(chan engine.Line)
	feedErr := make(chan error, 1)
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go func() {
		defer close(lines)
		feedErr <- j.feed(feedCtx, sources, lines)
	}()

	err = eng.CoverAll(ctx, lines, j.cfg.Workers, func(res engine.Result) error {
		tally.Add(res)
		j.observe(runID, res)
		if j.db != nil {
			if err := j.db.RecordLine(ctx, runID, res); err != nil {
				return err
			}
		}
		return writer.Write(res)
	})
	stopFeed()
	if ferr := <-feedErr; err == nil && ferr != nil && !errors.Is(ferr, context.Canceled) {
		err = ferr
	}
	if err != nil {
		return tally, err
	}

	if j.db != nil {
		if err := j.db.FinishRun(ctx, runID); err != nil {
			return tally, err
		}
	}
	j.emit(telemetry.Event{Kind: telemetry.KindRunDone, RunID: runID, Data: map[string]any{
		"lines":     tally.Lines,
		"covered":   tally.Covered,
		"uncovered": tally.Uncovered,
		"failed":    tally.Failed,
	}})
	j.printer.RunSummary(ui.RunSummaryData{
		Lines:     tally.Lines,
		Covered:   tally.Covered,
		Uncovered: tally.Uncovered,
		Failed:    tally.Failed,
		Coverages: tally.Coverages,
		Rules:     eng.Automaton().Rules(),
		Unused:    tally.Unused(eng.Automaton().Rules()),
		Duration:  time.Since(start),
	})
	return tally, nil
}

// observe reports a line outcome to telemetry and, when verbose, to the user.
func (j *runJob) observe(runID string, res engine.Result) {
	evt := telemetry.Event{RunID: runID, Source: res.Line.Source, Line: res.Line.No}
	switch {
	case res.Err != nil:
		evt.Kind = telemetry.KindLineFailed
		evt.Data = map[string]any{"error": res.Err.Error()}
		j.printer.LineFailed(res.Line.Source, res.Line.No, res.Err)
	case !res.Covered():
		evt.Kind = telemetry.KindLineUncovered
		if j.cfg.Verbose {
			j.printer.LineUncovered(res.Line.Source, res.Line.No, res.Line.Text)
		}
	default:
		evt.Kind = telemetry.KindLineDone
		evt.Data = map[string]any{"coverages": len(res.All), "lrlm": len(res.LRLM)}
	}
	j.emit(evt)
}

func (j *runJob) emit(evt telemetry.Event) {
	if err := j.emitter.Emit(evt); err != nil {
		j.printer.Error(err.Error())
	}
}

// writeListing writes the rule listing artifact unless it is disabled.
func (j *runJob) writeListing(entries []pattern.Entry) error {
	if j.cfg.RulesOut == "" {
		return nil
	}
	f, err := afero.NewOsFs().Create(j.cfg.RulesOut)
	if err != nil {
		return fmt.Errorf("failed to create rule listing: %w", err)
	}
	if err := report.WriteListing(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// expandInputs resolves directories to their files. "-" stands for stdin.
func (j *runJob) expandInputs() ([]string, error) {
	var out []string
	for _, in := range j.inputs {
		if in == "-" {
			out = append(out, in)
			continue
		}
		files, err := corpus.Expand([]string{in})
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// feed sends the lines of every source, in order, to lines.
func (j *runJob) feed(ctx context.Context, sources []string, lines chan<- engine.Line) error {
	for _, src := range sources {
		if src == "-" {
			if err := engine.Feed(ctx, j.stdin, "-", lines); err != nil {
				return err
			}
			continue
		}
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		err = engine.Feed(ctx, f, src, lines)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// watchLoop runs once, then again after every change to the rules or inputs
// until ctx is canceled. A failing run is reported and waits for the next
// change.
func (j *runJob) watchLoop(ctx context.Context) error {
	for _, in := range j.inputs {
		if in == "-" {
			return errors.New("--watch needs named inputs, not stdin")
		}
	}

	paths := append([]string{j.rulesPath}, j.inputs...)
	w, err := watch.NewWatcher(paths...)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	if _, err := j.cover(ctx); err != nil {
		j.printer.Error(err.Error())
	}
	j.printer.Watching(paths)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			j.printer.Reloaded(change.Path)
			j.emit(telemetry.Event{Kind: telemetry.KindReload, Source: change.Path})
			if _, err := j.cover(ctx); err != nil && ctx.Err() == nil {
				j.printer.Error(err.Error())
			}
		}
	}
}
