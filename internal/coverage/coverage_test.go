package coverage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/rulecover/internal/category"
	"github.com/papapumpkin/rulecover/internal/pattern"
	"github.com/papapumpkin/rulecover/internal/stream"
)

// mkWords builds words named w0, w1, ... with the given category sets.
func mkWords(cats ...[]string) []stream.Word {
	words := make([]stream.Word, len(cats))
	for i, c := range cats {
		words[i] = stream.Word{Surface: fmt.Sprintf("w%d", i), Categories: category.NewSet(c...)}
	}
	return words
}

func surfaces(words []stream.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Surface
	}
	return out
}

func signatures(covs []Coverage) []Signature {
	out := make([]Signature, len(covs))
	for i, c := range covs {
		out[i] = c.Signature()
	}
	return out
}

func search(t *testing.T, rules []pattern.Rule, words []stream.Word) []Coverage {
	t.Helper()
	covs, err := Search(context.Background(), pattern.Build(rules), words, Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return covs
}

func TestSearchSingleRule(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{{Categories: []string{"NOUN"}, Comment: "noun"}}
	covs := search(t, rules, mkWords([]string{"NOUN"}))

	want := []Coverage{{{Words: []string{"w0"}, Rule: pattern.Accept{RuleID: 0, Comment: "noun"}}}}
	if diff := cmp.Diff(want, covs); diff != "" {
		t.Errorf("coverages mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchAmbiguousSegmentation(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{
		{Categories: []string{"NOUN"}, Comment: "one"},
		{Categories: []string{"NOUN", "NOUN"}, Comment: "two"},
	}
	covs := search(t, rules, mkWords([]string{"NOUN"}, []string{"NOUN"}))

	want := []Coverage{
		{{Words: []string{"w0", "w1"}, Rule: pattern.Accept{RuleID: 1, Comment: "two"}}},
		{
			{Words: []string{"w0"}, Rule: pattern.Accept{RuleID: 0, Comment: "one"}},
			{Words: []string{"w1"}, Rule: pattern.Accept{RuleID: 0, Comment: "one"}},
		},
	}
	if diff := cmp.Diff(want, covs); diff != "" {
		t.Errorf("coverages mismatch (-want +got):\n%s", diff)
	}

	best := LRLM(covs)
	if diff := cmp.Diff([]Signature{{1, 1}}, signatures(best)); diff != "" {
		t.Errorf("LRLM signatures mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchUncoveredLine(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{{Categories: []string{"NOUN"}}}

	tests := []struct {
		name  string
		words []stream.Word
	}{
		{"no edge from root", mkWords([]string{category.DefaultCategory})},
		{"dead end mid line", mkWords([]string{"NOUN"}, []string{"ADV"})},
		{"incomplete rule at end", mkWords([]string{"DET"})},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			covs := search(t, append(rules, pattern.Rule{Categories: []string{"DET", "NOUN"}}), tt.words)
			if len(covs) != 0 {
				t.Errorf("got %d coverages, want none: %v", len(covs), covs)
			}
		})
	}
}

func TestSearchEmptyLine(t *testing.T) {
	t.Parallel()

	if covs := search(t, []pattern.Rule{{Categories: []string{"NOUN"}}}, nil); len(covs) != 0 {
		t.Errorf("empty line without an empty rule: got %v, want none", covs)
	}

	covs := search(t, []pattern.Rule{{Comment: "nothing"}}, nil)
	want := []Coverage{{{Rule: pattern.Accept{RuleID: 0, Comment: "nothing"}}}}
	if diff := cmp.Diff(want, covs); diff != "" {
		t.Errorf("empty line with an empty rule mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchMultipleCategories(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{
		{Categories: []string{"det", "nom"}, Comment: "dn"},
		{Categories: []string{"prn"}, Comment: "p"},
		{Categories: []string{"nom"}, Comment: "n"},
		{Categories: []string{"verb", "nom"}, Comment: "vn"},
		{Categories: []string{"verb"}, Comment: "v"},
	}
	// w0 is prn or det, w1 is nom or verb, w2 is nom.
	words := mkWords([]string{"prn", "det"}, []string{"nom", "verb"}, []string{"nom"})
	covs := search(t, rules, words)

	got := make([]string, len(covs))
	for i, c := range covs {
		got[i] = c.String()
	}
	want := []string{
		"(0 w0 w1) (2 w2)",
		"(1 w0) (2 w1) (2 w2)",
		"(1 w0) (3 w1 w2)",
		"(1 w0) (4 w1) (2 w2)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("coverages mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCoversEveryWord(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{
		{Categories: []string{"a"}},
		{Categories: []string{"a", "a"}},
		{Categories: []string{"a", "b"}},
		{Categories: []string{"b"}},
		{Categories: []string{"a", "b", "a"}},
	}
	words := mkWords(
		[]string{"a"}, []string{"a", "b"}, []string{"a"},
		[]string{"b"}, []string{"a", "b"}, []string{"a"},
	)
	covs := search(t, rules, words)
	if len(covs) == 0 {
		t.Fatal("expected at least one coverage")
	}

	want := surfaces(words)
	for _, c := range covs {
		if diff := cmp.Diff(want, c.Words()); diff != "" {
			t.Errorf("coverage %s does not reproduce the line (-want +got):\n%s", c, diff)
		}
	}
}

func TestSearchDeterministic(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{
		{Categories: []string{"x"}},
		{Categories: []string{"y"}},
		{Categories: []string{"x", "y"}},
		{Categories: []string{"y", "x"}},
	}
	words := mkWords([]string{"x", "y"}, []string{"y", "x"}, []string{"x", "y"})

	first := search(t, rules, words)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, search(t, rules, words)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestSearchZeroLengthRule(t *testing.T) {
	t.Parallel()

	rules := []pattern.Rule{
		{Categories: []string{"nom"}, Comment: "n"},
		{Comment: "empty"},
	}

	one := search(t, rules, mkWords([]string{"nom"}))
	if diff := cmp.Diff([]Signature{{1}, {0, 1}}, signatures(one)); diff != "" {
		t.Errorf("one word signatures mismatch (-want +got):\n%s", diff)
	}

	two := search(t, rules, mkWords([]string{"nom"}, []string{"nom"}))
	if len(two) != 4 {
		t.Errorf("two words: got %d coverages, want 4: %v", len(two), signatures(two))
	}
	for _, c := range two {
		for i := 1; i < len(c); i++ {
			if len(c[i].Words) == 0 && len(c[i-1].Words) == 0 {
				t.Errorf("coverage %v has consecutive empty segments", c.Signature())
			}
		}
	}
}

func TestSearchMaxCoverages(t *testing.T) {
	t.Parallel()

	a := pattern.Build([]pattern.Rule{
		{Categories: []string{"nom"}},
		{Categories: []string{"nom", "nom"}},
	})
	words := mkWords([]string{"nom"}, []string{"nom"}, []string{"nom"}, []string{"nom"})

	covs, err := Search(context.Background(), a, words, Options{MaxCoverages: 5})
	if err != nil {
		t.Fatalf("Search with cap 5: %v", err)
	}
	if len(covs) != 5 {
		t.Errorf("got %d coverages, want 5", len(covs))
	}

	_, err = Search(context.Background(), a, words, Options{MaxCoverages: 3})
	if !errors.Is(err, ErrCoverageLimit) {
		t.Errorf("Search with cap 3: err = %v, want ErrCoverageLimit", err)
	}
}

func TestSearchCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := pattern.Build([]pattern.Rule{{Categories: []string{"nom"}}})
	_, err := Search(ctx, a, mkWords([]string{"nom"}), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCoverageString(t *testing.T) {
	t.Parallel()

	c := Coverage{
		{Words: []string{"a", "cat"}, Rule: pattern.Accept{RuleID: 3}},
		{Words: []string{"sleeps"}, Rule: pattern.Accept{RuleID: 12}},
	}
	if got, want := c.String(), "(3 a cat) (12 sleeps)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
