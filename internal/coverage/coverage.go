// Package coverage enumerates every way a rule automaton can tile a line of
// classified words end to end, and selects the tilings preferred by the
// left-to-right longest-match policy.
package coverage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papapumpkin/rulecover/internal/pattern"
	"github.com/papapumpkin/rulecover/internal/stream"
)

// ErrCoverageLimit is returned when a line has more coverages than
// Options.MaxCoverages allows.
var ErrCoverageLimit = errors.New("coverage: too many coverages")

// cancelCheckInterval is how many search steps run between context checks.
const cancelCheckInterval = 1024

// Segment is a run of consecutive words matched by one rule.
type Segment struct {
	Words []string
	Rule  pattern.Accept
}

// Coverage is one complete, gapless tiling of a line.
type Coverage []Segment

// Signature is the sequence of segment lengths of a coverage.
type Signature []int

// Signature returns the word count of each segment, in order.
func (c Coverage) Signature() Signature {
	sig := make(Signature, len(c))
	for i, s := range c {
		sig[i] = len(s.Words)
	}
	return sig
}

// Words returns the concatenated words of all segments.
func (c Coverage) Words() []string {
	var out []string
	for _, s := range c {
		out = append(out, s.Words...)
	}
	return out
}

// String renders the coverage as "(id w1 w2) (id w3)".
func (c Coverage) String() string {
	groups := make([]string, len(c))
	for i, s := range c {
		groups[i] = fmt.Sprintf("(%d %s)", s.Rule.RuleID, strings.Join(s.Words, " "))
	}
	return strings.Join(groups, " ")
}

// Options bounds a search.
type Options struct {
	// MaxCoverages caps the number of coverages of one line. Zero means no
	// limit.
	MaxCoverages int
}

// step is one move of a search path. Paths share their prefixes.
type step struct {
	prev  *step
	word  string
	close bool
	rule  pattern.Accept
}

type frame struct {
	pos   int
	node  *pattern.Node
	trail *step
	// open counts the words of the segment being built.
	open int
	// emptyClosed is set after closing a zero-length segment, until the next
	// word is consumed. It stops an empty-pattern rule from closing forever.
	emptyClosed bool
}

// Search returns every coverage of words by a. Words are consumed through
// automaton edges labelled with one of their categories; whenever the current
// node accepts, the segment may also be closed and a new one started from the
// root. Tilings that cannot reach the last word are dropped, so an uncovered
// line yields no coverages and no error.
//
// Branches are explored depth first, consuming edges in ascending category
// order before closing, which makes the result order deterministic.
func Search(ctx context.Context, a *pattern.Automaton, words []stream.Word, opts Options) ([]Coverage, error) {
	cats := make([][]string, len(words))
	for i, w := range words {
		cats[i] = w.Categories.Sorted()
	}

	root := a.Root()
	var out []Coverage
	stack := []frame{{node: root}}

	for n := 0; len(stack) > 0; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("coverage: search: %w", err)
			}
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		acc, accepts := f.node.Accept()

		if f.pos == len(words) {
			if !accepts {
				continue
			}
			out = append(out, assemble(&step{prev: f.trail, close: true, rule: acc}))
			if opts.MaxCoverages > 0 && len(out) > opts.MaxCoverages {
				return nil, fmt.Errorf("%w: more than %d", ErrCoverageLimit, opts.MaxCoverages)
			}
			continue
		}

		// Pushed first so it is explored after every consuming branch.
		if accepts && (f.open > 0 || !f.emptyClosed) {
			stack = append(stack, frame{
				pos:         f.pos,
				node:        root,
				trail:       &step{prev: f.trail, close: true, rule: acc},
				emptyClosed: f.open == 0,
			})
		}

		word := words[f.pos]
		wc := cats[f.pos]
		for i := len(wc) - 1; i >= 0; i-- {
			next := f.node.Child(wc[i])
			if next == nil {
				continue
			}
			stack = append(stack, frame{
				pos:   f.pos + 1,
				node:  next,
				trail: &step{prev: f.trail, word: word.Surface},
				open:  f.open + 1,
			})
		}
	}
	return out, nil
}

// assemble turns a finished path into its segments.
func assemble(last *step) Coverage {
	var steps []*step
	for s := last; s != nil; s = s.prev {
		steps = append(steps, s)
	}

	var cov Coverage
	var words []string
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if !s.close {
			words = append(words, s.word)
			continue
		}
		cov = append(cov, Segment{Words: words, Rule: s.rule})
		words = nil
	}
	return cov
}
