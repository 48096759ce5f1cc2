package stream

import (
	"fmt"

	"github.com/papapumpkin/rulecover/internal/category"
)

// LemmaSource selects which string is looked up as the lemma of a reading.
type LemmaSource string

const (
	// LemmaSurface keys every reading of a unit by the unit's first field.
	LemmaSurface LemmaSource = "surface"
	// LemmaReading keys each reading by its own lemma.
	LemmaReading LemmaSource = "reading"
)

// ParseLemmaSource validates s. The empty string selects LemmaSurface.
func ParseLemmaSource(s string) (LemmaSource, error) {
	switch LemmaSource(s) {
	case "", LemmaSurface:
		return LemmaSurface, nil
	case LemmaReading:
		return LemmaReading, nil
	}
	return "", fmt.Errorf("stream: unknown lemma source %q", s)
}

// Word is a unit's surface form with the union of the categories of all its
// readings.
type Word struct {
	Surface    string
	Categories category.Set
}

// Classifier assigns categories to the units of a line.
type Classifier struct {
	Index  *category.Index
	Lemmas LemmaSource
}

// ClassifyLine returns one Word per unit of line, in order.
func (c Classifier) ClassifyLine(line string) []Word {
	units := Units(line)
	words := make([]Word, len(units))
	for i, u := range units {
		words[i] = c.ClassifyUnit(u)
	}
	return words
}

// ClassifyUnit unions the categories of every reading of u. Each reading
// contributes at least category.DefaultCategory.
func (c Classifier) ClassifyUnit(u Unit) Word {
	cats := make(category.Set)
	for _, r := range u.Readings {
		lemma, tags := SplitReading(r)
		if c.Lemmas != LemmaReading && !u.Bare {
			lemma = u.Surface
		}
		cats.Union(c.Index.Classify(tags, lemma))
	}
	if cats.Len() == 0 {
		cats.Add(category.DefaultCategory)
	}
	return Word{Surface: u.Surface, Categories: cats}
}
