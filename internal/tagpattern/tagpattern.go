// Package tagpattern compiles dotted wildcard tag specifications, as written in
// the cat-item "tags" attribute of a transfer file, into anchored matchers over
// a reading's literal tag sequence ("<n><sg>").
package tagpattern

import (
	"regexp"
	"strings"
)

const (
	// anyTag matches exactly one bracketed tag.
	anyTag = `<[a-z0-9-]+>`
	// anyTags matches zero or more bracketed tags.
	anyTags = `(?:` + anyTag + `)*`
)

// Wildcard is the slot value that stands for an arbitrary tag.
const Wildcard = "*"

// Pattern is a compiled tag specification. It is immutable and safe for
// concurrent use.
type Pattern struct {
	spec string
	re   *regexp.Regexp
}

// Compile turns spec into a Pattern. Slots are separated by dots. A "*" slot
// matches exactly one tag, except in last position where it matches any
// number of trailing tags. The empty spec matches only an empty tag sequence.
//
// Malformed specs are not diagnosed; literal tags are quoted so they can never
// be interpreted as expression syntax.
func Compile(spec string) *Pattern {
	return &Pattern{spec: spec, re: regexp.MustCompile(Expr(spec))}
}

// Expr returns the anchored regular expression equivalent to spec.
func Expr(spec string) string {
	if spec == "" {
		return `^$`
	}

	slots := strings.Split(spec, ".")
	var b strings.Builder
	b.WriteString("^")
	for _, slot := range slots[:len(slots)-1] {
		if slot == Wildcard {
			b.WriteString(anyTag)
			continue
		}
		b.WriteString(literal(slot))
	}

	last := slots[len(slots)-1]
	if last == Wildcard {
		b.WriteString(anyTags)
	} else {
		b.WriteString(literal(last))
	}
	b.WriteString("$")
	return b.String()
}

func literal(tag string) string {
	return regexp.QuoteMeta("<" + tag + ">")
}

// Match reports whether tags, a concatenation of bracketed tags, satisfies
// the pattern in full.
func (p *Pattern) Match(tags string) bool {
	return p.re.MatchString(tags)
}

// Spec returns the source specification the pattern was compiled from.
func (p *Pattern) Spec() string {
	return p.spec
}

// String returns the canonical expression of the pattern. Two specs with the
// same expression are interchangeable.
func (p *Pattern) String() string {
	return p.re.String()
}
