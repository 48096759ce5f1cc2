package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/papapumpkin/rulecover/internal/store"
	"github.com/papapumpkin/rulecover/internal/transfer"
)

// Semantic color palette.
const (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan, headings
	colorAccent  = lipgloss.Color("#FFD700") // Gold, warnings
	colorSuccess = lipgloss.Color("#00E676") // Green, covered
	colorDanger  = lipgloss.Color("#FF5252") // Red, errors
	colorMuted   = lipgloss.Color("#636363") // Gray, de-emphasized
)

// UI is the human-facing progress reporter used by the commands.
type UI interface {
	RunStart(runID, rulesPath string, rules, categories int)
	LineUncovered(source string, no int, text string)
	LineFailed(source string, no int, err error)
	RunSummary(d RunSummaryData)
	ValidateResult(path string, rules int, errs []transfer.ValidationError)
	Watching(paths []string)
	Reloaded(path string)
	Info(msg string)
	Error(msg string)
}

// Printer renders UI output with lipgloss. Colors are dropped automatically
// when the writer is not a terminal.
type Printer struct {
	w io.Writer

	heading lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
}

var _ UI = (*Printer)(nil)

// New returns a Printer on stderr.
func New() *Printer {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter returns a Printer on w.
func NewWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		heading: r.NewStyle().Foreground(colorPrimary).Bold(true),
		ok:      r.NewStyle().Foreground(colorSuccess).Bold(true),
		warn:    r.NewStyle().Foreground(colorAccent).Bold(true),
		bad:     r.NewStyle().Foreground(colorDanger).Bold(true),
		dim:     r.NewStyle().Foreground(colorMuted),
		bold:    r.NewStyle().Bold(true),
	}
}

func (p *Printer) RunStart(runID, rulesPath string, rules, categories int) {
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.heading.Render("▶ covering with"),
		rulesPath,
		p.dim.Render(fmt.Sprintf("(%s rules, %s categories, run %s)",
			humanize.Comma(int64(rules)), humanize.Comma(int64(categories)), shortID(runID))))
}

func (p *Printer) LineUncovered(source string, no int, text string) {
	fmt.Fprintf(p.w, "%s %s %s\n", p.warn.Render("⚠ uncovered"), p.dim.Render(location(source, no)), text)
}

func (p *Printer) LineFailed(source string, no int, err error) {
	fmt.Fprintf(p.w, "%s %s %v\n", p.bad.Render("✗ failed"), p.dim.Render(location(source, no)), err)
}

// RunSummaryData holds the totals of a finished run.
type RunSummaryData struct {
	Lines     int
	Covered   int
	Uncovered int
	Failed    int
	Coverages int
	Rules     int
	Unused    []int
	Duration  time.Duration
}

// RunSummary prints a boxed summary of a finished run.
func (p *Printer) RunSummary(d RunSummaryData) {
	pct := 0.0
	if d.Lines > 0 {
		pct = float64(d.Covered) / float64(d.Lines) * 100
	}

	fmt.Fprintln(p.w, p.dim.Render("┌─ ")+p.bold.Render("run summary")+p.dim.Render(" ─────────────────────────"))
	fmt.Fprintf(p.w, "%s  lines: %s, %s covered (%s)\n", p.dim.Render("│"),
		humanize.Comma(int64(d.Lines)), p.ok.Render(humanize.Comma(int64(d.Covered))), humanize.FtoaWithDigits(pct, 1)+"%")
	if d.Uncovered > 0 {
		fmt.Fprintf(p.w, "%s  uncovered: %s\n", p.dim.Render("│"), p.warn.Render(humanize.Comma(int64(d.Uncovered))))
	}
	if d.Failed > 0 {
		fmt.Fprintf(p.w, "%s  failed: %s\n", p.dim.Render("│"), p.bad.Render(humanize.Comma(int64(d.Failed))))
	}
	fmt.Fprintf(p.w, "%s  coverages: %s\n", p.dim.Render("│"), humanize.Comma(int64(d.Coverages)))
	if d.Rules > 0 {
		fmt.Fprintf(p.w, "%s  rules used: %d/%d", p.dim.Render("│"), d.Rules-len(d.Unused), d.Rules)
		if len(d.Unused) > 0 {
			fmt.Fprint(p.w, p.dim.Render(" (unused: "+joinInts(d.Unused, 12)+")"))
		}
		fmt.Fprintln(p.w)
	}
	fmt.Fprintf(p.w, "%s  duration: %s\n", p.dim.Render("│"), d.Duration.Round(time.Millisecond))
	fmt.Fprintln(p.w, p.dim.Render("└──────────────────────────────────────────"))
}

func (p *Printer) ValidateResult(path string, rules int, errs []transfer.ValidationError) {
	if len(errs) == 0 {
		fmt.Fprintf(p.w, "%s: %d rule(s), no problems\n", p.ok.Render(fmt.Sprintf("✓ %s", path)), rules)
		return
	}
	if !transfer.HasErrors(errs) {
		fmt.Fprintf(p.w, "%s: %d rule(s), %d warning(s):\n", p.warn.Render(fmt.Sprintf("⚠ %s", path)), rules, len(errs))
	} else {
		fmt.Fprintf(p.w, "%s: %d problem(s):\n", p.bad.Render(fmt.Sprintf("✗ %s", path)), len(errs))
	}
	for _, e := range errs {
		bullet := p.bad.Render("•")
		if e.Severity == transfer.SeverityWarning {
			bullet = p.warn.Render("•")
		}
		fmt.Fprintf(p.w, "  %s %s\n", bullet, e.Error())
	}
}

func (p *Printer) Watching(paths []string) {
	fmt.Fprintf(p.w, "%s %s\n", p.heading.Render("◎ watching"), p.dim.Render(strings.Join(paths, ", ")))
}

func (p *Printer) Reloaded(path string) {
	fmt.Fprintf(p.w, "%s %s\n", p.heading.Render("↻ changed"), path)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s%s\n", p.bad.Render("error: "), msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.dim.Render(msg))
}

// Stats prints a stored run with its rule usage and uncovered lines. At most
// maxLines uncovered lines are listed.
func (p *Printer) Stats(run store.Run, usage []store.RuleUsage, uncovered []store.LineRecord, maxLines int) {
	fmt.Fprintf(p.w, "%s %s %s\n", p.heading.Render("run"), run.ID,
		p.dim.Render(fmt.Sprintf("(%s, %s)", run.RulesPath, humanize.Time(run.StartedAt))))
	fmt.Fprintf(p.w, "  lines: %s  covered: %s  uncovered: %s  failed: %s\n\n",
		humanize.Comma(int64(run.Lines)), humanize.Comma(int64(run.Covered)),
		humanize.Comma(int64(run.Uncovered)), humanize.Comma(int64(run.Failed)))

	fmt.Fprintln(p.w, p.bold.Render("rule usage:"))
	for _, u := range usage {
		uses := humanize.Comma(int64(u.Uses))
		if u.Uses == 0 {
			uses = p.warn.Render(uses)
		}
		fmt.Fprintf(p.w, "  %-4d %8s  %s", u.RuleID, uses, u.Pattern)
		if u.Comment != "" {
			fmt.Fprint(p.w, p.dim.Render("  "+u.Comment))
		}
		fmt.Fprintln(p.w)
	}

	if len(uncovered) == 0 {
		return
	}
	fmt.Fprintf(p.w, "\n%s\n", p.bold.Render("uncovered lines:"))
	for i, l := range uncovered {
		if maxLines > 0 && i == maxLines {
			fmt.Fprintln(p.w, p.dim.Render(fmt.Sprintf("  … and %s more", humanize.Comma(int64(len(uncovered)-maxLines)))))
			break
		}
		fmt.Fprintf(p.w, "  %s %s\n", p.dim.Render(location(l.Source, l.LineNo)), l.Text)
	}
}

func location(source string, no int) string {
	if source == "" {
		source = "-"
	}
	return fmt.Sprintf("%s:%d", source, no)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// joinInts joins up to limit ids with commas, eliding the rest.
func joinInts(ids []int, limit int) string {
	var b strings.Builder
	for i, id := range ids {
		if i == limit {
			fmt.Fprintf(&b, ", … +%d", len(ids)-limit)
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, id)
	}
	return b.String()
}
