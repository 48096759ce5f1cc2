// Package category classifies a reading's tags and lemma into the abstract
// categories declared by a transfer file. The Index is built once from every
// cat-item of the document and is read-only afterwards.
package category

import (
	"sort"

	"github.com/papapumpkin/rulecover/internal/tagpattern"
)

// DefaultCategory is assigned to a reading that no declared category matches,
// so every word always carries at least one category.
const DefaultCategory = "default"

// AnyLemma is the lemma key of a cat-item without a lemma constraint.
const AnyLemma = ""

// Rule is one cat-item: a tag specification, an optional lemma and the name of
// the category it belongs to.
type Rule struct {
	Tags  string
	Lemma string
	Name  string
}

// Set is an unordered set of category names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name into the set.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Union adds every member of other to s.
func (s Set) Union(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type entry struct {
	pattern *tagpattern.Pattern
	lemmas  map[string]Set
}

// Index maps compiled tag patterns to the categories registered under each
// lemma. Specs that compile to the same expression share one entry.
type Index struct {
	entries []*entry
	byExpr  map[string]*entry
}

// NewIndex compiles every rule into an Index.
func NewIndex(rules []Rule) *Index {
	idx := &Index{byExpr: make(map[string]*entry)}
	for _, r := range rules {
		idx.add(r)
	}
	return idx
}

func (idx *Index) add(r Rule) {
	expr := tagpattern.Expr(r.Tags)
	e, ok := idx.byExpr[expr]
	if !ok {
		e = &entry{pattern: tagpattern.Compile(r.Tags), lemmas: make(map[string]Set)}
		idx.byExpr[expr] = e
		idx.entries = append(idx.entries, e)
	}
	names, ok := e.lemmas[r.Lemma]
	if !ok {
		names = make(Set)
		e.lemmas[r.Lemma] = names
	}
	names.Add(r.Name)
}

// Patterns returns the number of distinct compiled tag patterns.
func (idx *Index) Patterns() int {
	return len(idx.entries)
}

// Classify returns the categories of a reading with the given tag sequence
// and lemma: the union, over every matching pattern, of the names registered
// under lemma and under AnyLemma. The result is never empty; when nothing
// applies it is {DefaultCategory}.
func (idx *Index) Classify(tags, lemma string) Set {
	out := make(Set)
	for _, e := range idx.entries {
		if !e.pattern.Match(tags) {
			continue
		}
		out.Union(e.lemmas[lemma])
		if lemma != AnyLemma {
			out.Union(e.lemmas[AnyLemma])
		}
	}
	if len(out) == 0 {
		out.Add(DefaultCategory)
	}
	return out
}
