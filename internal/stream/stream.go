// Package stream reads lines in the lexical-unit stream format produced by a
// morphological analyser and assigns each unit the categories it may belong
// to.
//
// A unit looks like ^surface/lemma<t1><t2>/lemma<t3>$; '\' escapes any of the
// delimiters. A reading may carry a multiword queue after '#', which is not
// part of its tags.
package stream

import "strings"

const (
	unitStart  = '^'
	unitEnd    = '$'
	readingSep = '/'
	escape     = '\\'
	tagOpen    = '<'
	queueMark  = '#'
)

// Unit is one lexical unit of a line. A bare unit has no reading separator;
// its whole body is both the surface form and the only reading.
type Unit struct {
	Surface  string
	Readings []string
	Bare     bool
}

// Units extracts the lexical units of line in order. Text outside units is
// ignored, as is a trailing unit that is never closed.
func Units(line string) []Unit {
	var units []Unit
	start := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == escape:
			i++
		case start < 0 && c == unitStart:
			start = i + 1
		case start >= 0 && c == unitEnd:
			units = append(units, parseUnit(line[start:i]))
			start = -1
		}
	}
	return units
}

func parseUnit(body string) Unit {
	fields := splitUnescaped(body, readingSep)
	if len(fields) == 1 {
		return Unit{Surface: body, Readings: []string{body}, Bare: true}
	}
	return Unit{Surface: fields[0], Readings: fields[1:]}
}

// splitUnescaped splits s on sep, ignoring separators preceded by an escape.
func splitUnescaped(s string, sep byte) []string {
	var out []string
	from := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escape:
			i++
		case sep:
			out = append(out, s[from:i])
			from = i + 1
		}
	}
	return append(out, s[from:])
}

// SplitReading separates a reading into its lemma and its tag sequence. Any
// multiword queue after '#' is dropped from the tags.
func SplitReading(reading string) (lemma, tags string) {
	cut := strings.IndexByte(reading, tagOpen)
	if cut < 0 {
		return reading, ""
	}
	lemma, tags = reading[:cut], reading[cut:]
	if q := strings.IndexByte(tags, queueMark); q >= 0 {
		tags = tags[:q]
	}
	return lemma, tags
}
