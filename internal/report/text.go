package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/papapumpkin/rulecover/internal/coverage"
	"github.com/papapumpkin/rulecover/internal/engine"
)

// noCoverage replaces the empty coverage list of an uncovered line.
const noCoverage = "no coverage"

// TextWriter prints each result as the input line, a blank line, then the
// requested sections. Every coverage is one line of groups; each section
// ends with a blank line.
type TextWriter struct {
	w    *bufio.Writer
	opts Options
}

// NewTextWriter returns a TextWriter on w. Call Flush when done.
func NewTextWriter(w io.Writer, opts Options) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), opts: opts}
}

// Write renders one result.
func (t *TextWriter) Write(r engine.Result) error {
	fmt.Fprintf(t.w, "%s\n\n", r.Line.Text)

	if r.Err != nil {
		fmt.Fprintf(t.w, "error: %v\n\n", r.Err)
		return t.flush()
	}

	mode := t.opts.mode()
	if mode.ShowAll() {
		t.section("All coverages:", r.All)
	}
	if mode.ShowLRLM() {
		t.section("LRLM only:", r.LRLM)
	}
	return t.flush()
}

func (t *TextWriter) section(title string, covs []coverage.Coverage) {
	fmt.Fprintln(t.w, title)
	if len(covs) == 0 {
		fmt.Fprintln(t.w, noCoverage)
	}
	for _, c := range covs {
		fmt.Fprintln(t.w, FormatCoverage(c, t.opts.Label))
	}
	fmt.Fprintln(t.w)
}

// flush pushes buffered output so results appear as they are produced.
func (t *TextWriter) flush() error {
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("report: write text: %w", err)
	}
	return nil
}
