// Package engine ties the classifier, the rule automaton and the coverage
// search together. An Engine is built once per rule document and covers any
// number of lines, concurrently if asked; lines share no state.
package engine

import (
	"context"
	"fmt"
	"sync"

	ordered "github.com/sourcegraph/conc/stream"

	"github.com/papapumpkin/rulecover/internal/category"
	"github.com/papapumpkin/rulecover/internal/coverage"
	"github.com/papapumpkin/rulecover/internal/pattern"
	"github.com/papapumpkin/rulecover/internal/stream"
	"github.com/papapumpkin/rulecover/internal/transfer"
)

// Options configures an Engine.
type Options struct {
	Lemmas stream.LemmaSource
	Search coverage.Options
}

// Engine covers lines with the rules of one document. It is read-only after
// New and safe for concurrent use.
type Engine struct {
	classifier stream.Classifier
	automaton  *pattern.Automaton
	categories int
	opts       Options
}

// New compiles the category index and the rule automaton of doc.
func New(doc *transfer.Document, opts Options) *Engine {
	return &Engine{
		classifier: stream.Classifier{
			Index:  category.NewIndex(doc.CategoryRules()),
			Lemmas: opts.Lemmas,
		},
		automaton:  pattern.Build(doc.PatternRules()),
		categories: len(doc.Categories),
		opts:       opts,
	}
}

// Automaton returns the compiled rule automaton.
func (e *Engine) Automaton() *pattern.Automaton {
	return e.automaton
}

// Categories returns the number of declared categories.
func (e *Engine) Categories() int {
	return e.categories
}

// Classify returns the classified words of a line.
func (e *Engine) Classify(line string) []stream.Word {
	return e.classifier.ClassifyLine(line)
}

// Line is one input line and where it came from.
type Line struct {
	Source string
	No     int
	Text   string
}

// Result is the outcome of covering one line. A line without coverage has
// empty All and LRLM and a nil Err; Err is set only when the search itself
// failed (limit reached or cancelled).
type Result struct {
	Line  Line
	Words []stream.Word
	All   []coverage.Coverage
	LRLM  []coverage.Coverage
	Err   error
}

// Covered reports whether the line has at least one coverage.
func (r Result) Covered() bool {
	return len(r.All) > 0
}

// Cover classifies and covers a single line.
func (e *Engine) Cover(ctx context.Context, in Line) Result {
	res := Result{Line: in, Words: e.Classify(in.Text)}
	all, err := coverage.Search(ctx, e.automaton, res.Words, e.opts.Search)
	if err != nil {
		res.Err = fmt.Errorf("line %d: %w", in.No, err)
		return res
	}
	res.All = all
	if len(all) > 0 {
		res.LRLM = coverage.LRLM(all)
	}
	return res
}

// CoverAll covers every line received from lines using up to workers
// goroutines and calls fn with each result in input order. It stops at the
// first error returned by fn or when ctx is done.
func (e *Engine) CoverAll(ctx context.Context, lines <-chan Line, workers int, fn func(Result) error) error {
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	failed := func() error {
		mu.Lock()
		defer mu.Unlock()
		return firstErr
	}

	s := ordered.New().WithMaxGoroutines(workers)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case in, ok := <-lines:
			if !ok {
				break loop
			}
			if failed() != nil {
				break loop
			}
			s.Go(func() ordered.Callback {
				res := e.Cover(ctx, in)
				return func() {
					if failed() != nil {
						return
					}
					if err := fn(res); err != nil {
						mu.Lock()
						firstErr = err
						mu.Unlock()
					}
				}
			})
		}
	}
	s.Wait()

	if err := failed(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("engine: cover: %w", err)
	}
	return nil
}
