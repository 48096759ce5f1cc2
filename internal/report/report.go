// Package report renders coverage results and rule listings. Text output
// follows the layout of the classic coverage script; JSON output is one
// object per line.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/papapumpkin/rulecover/internal/coverage"
	"github.com/papapumpkin/rulecover/internal/engine"
)

// Sentinel errors for option parsing.
var (
	ErrInvalidMode   = errors.New("report: invalid mode")
	ErrInvalidFormat = errors.New("report: invalid format")
	ErrInvalidLabel  = errors.New("report: invalid label")
)

// Mode selects which coverage sets are reported.
type Mode string

const (
	ModeAll  Mode = "all"
	ModeLRLM Mode = "lrlm"
	ModeBoth Mode = "both"
)

// ParseMode converts a configuration value to a Mode. The empty string
// selects ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeBoth, nil
	case ModeAll, ModeLRLM, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want all, lrlm or both)", ErrInvalidMode, s)
}

// ModeFromFlags resolves the --all and --lrlm switches. Neither or both
// select ModeBoth.
func ModeFromFlags(all, lrlm bool) Mode {
	switch {
	case all && !lrlm:
		return ModeAll
	case lrlm && !all:
		return ModeLRLM
	}
	return ModeBoth
}

// ShowAll reports whether the full coverage set is printed.
func (m Mode) ShowAll() bool { return m != ModeLRLM }

// ShowLRLM reports whether the LRLM subset is printed.
func (m Mode) ShowLRLM() bool { return m != ModeAll }

// Format is an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a configuration value to a Format. The empty string
// selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (want text or json)", ErrInvalidFormat, s)
}

// Label chooses what names a segment in text output.
type Label string

const (
	LabelID      Label = "id"
	LabelComment Label = "comment"
)

// ParseLabel converts a configuration value to a Label. The empty string
// selects LabelID.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.ToLower(s)); l {
	case "":
		return LabelID, nil
	case LabelID, LabelComment:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q (want id or comment)", ErrInvalidLabel, s)
}

// Writer receives results in input order.
type Writer interface {
	Write(r engine.Result) error
}

// Options configures a Writer.
type Options struct {
	Mode  Mode
	Label Label
}

func (o Options) mode() Mode {
	if o.Mode == "" {
		return ModeBoth
	}
	return o.Mode
}

// FormatCoverage renders c as space-separated groups "(label w1 w2)".
// A rule without a comment falls back to its id under LabelComment.
func FormatCoverage(c coverage.Coverage, label Label) string {
	if label != LabelComment {
		return c.String()
	}
	var b strings.Builder
	for i, seg := range c {
		if i > 0 {
			b.WriteByte(' ')
		}
		name := seg.Rule.Comment
		if name == "" {
			name = strconv.Itoa(seg.Rule.RuleID)
		}
		b.WriteByte('(')
		b.WriteString(name)
		for _, w := range seg.Words {
			b.WriteByte(' ')
			b.WriteString(w)
		}
		b.WriteByte(')')
	}
	return b.String()
}
