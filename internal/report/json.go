package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/papapumpkin/rulecover/internal/coverage"
	"github.com/papapumpkin/rulecover/internal/engine"
)

// SegmentJSON is the wire form of one covered segment.
type SegmentJSON struct {
	Rule    int      `json:"rule"`
	Comment string   `json:"comment,omitempty"`
	Words   []string `json:"words"`
}

// WordJSON is the wire form of a classified word.
type WordJSON struct {
	Surface    string   `json:"surface"`
	Categories []string `json:"categories"`
}

// ResultJSON is the wire form of a line result. It is shared with the HTTP
// API.
type ResultJSON struct {
	Source  string          `json:"source,omitempty"`
	Line    int             `json:"line,omitempty"`
	Text    string          `json:"text"`
	Covered bool            `json:"covered"`
	Words   []WordJSON      `json:"words,omitempty"`
	All     [][]SegmentJSON `json:"all,omitempty"`
	LRLM    [][]SegmentJSON `json:"lrlm,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewResultJSON converts r, keeping only the sets selected by mode.
// Classified words are included when withWords is set.
func NewResultJSON(r engine.Result, mode Mode, withWords bool) ResultJSON {
	out := ResultJSON{
		Source:  r.Line.Source,
		Line:    r.Line.No,
		Text:    r.Line.Text,
		Covered: r.Covered(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if withWords {
		for _, w := range r.Words {
			out.Words = append(out.Words, WordJSON{Surface: w.Surface, Categories: w.Categories.Sorted()})
		}
	}
	if mode.ShowAll() {
		out.All = coveragesJSON(r.All)
	}
	if mode.ShowLRLM() {
		out.LRLM = coveragesJSON(r.LRLM)
	}
	return out
}

func coveragesJSON(covs []coverage.Coverage) [][]SegmentJSON {
	if len(covs) == 0 {
		return nil
	}
	out := make([][]SegmentJSON, len(covs))
	for i, c := range covs {
		segs := make([]SegmentJSON, len(c))
		for j, s := range c {
			words := s.Words
			if words == nil {
				words = []string{}
			}
			segs[j] = SegmentJSON{Rule: s.Rule.RuleID, Comment: s.Rule.Comment, Words: words}
		}
		out[i] = segs
	}
	return out
}

// JSONWriter writes one ResultJSON object per line.
type JSONWriter struct {
	enc  *json.Encoder
	opts Options
}

// NewJSONWriter returns a JSONWriter on w.
func NewJSONWriter(w io.Writer, opts Options) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONWriter{enc: enc, opts: opts}
}

// Write encodes one result.
func (j *JSONWriter) Write(r engine.Result) error {
	if err := j.enc.Encode(NewResultJSON(r, j.opts.mode(), false)); err != nil {
		return fmt.Errorf("report: write json: %w", err)
	}
	return nil
}

// New returns the Writer for format.
func New(w io.Writer, format Format, opts Options) Writer {
	if format == FormatJSON {
		return NewJSONWriter(w, opts)
	}
	return NewTextWriter(w, opts)
}
