// Package transfer loads the two sections of a structural transfer file that
// coverage needs: the category definitions and the ordered rule patterns.
//
// Apertium XML files (.t1x, .t2x, .t3x, ...) are read with encoding/xml.
// Files ending in .toml use an equivalent TOML layout:
//
//	[[category]]
//	name = "nom"
//	items = [{ tags = "n.*" }, { tags = "np.*", lemma = "Paris" }]
//
//	[[rule]]
//	comment = "DET NOM"
//	pattern = ["det", "nom"]
package transfer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/papapumpkin/rulecover/internal/category"
	"github.com/papapumpkin/rulecover/internal/pattern"
	"github.com/papapumpkin/rulecover/internal/tagpattern"
)

// ErrMissingSection indicates the document lacks the category definitions or
// the rule list.
var ErrMissingSection = errors.New("transfer: missing section")

// Format identifies the markup of a rule document.
type Format string

const (
	// FormatXML is the Apertium transfer XML format.
	FormatXML Format = "xml"
	// FormatTOML is the TOML rendition of the same content.
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file name.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatXML
}

// CatItem is one alternative of a category: a tag specification and an
// optional lemma.
type CatItem struct {
	Tags  string
	Lemma string
}

// CategoryDef is a named category and its items.
type CategoryDef struct {
	Name  string
	Items []CatItem
}

// RuleDef is one rule: its category pattern and comment.
type RuleDef struct {
	Pattern []string
	Comment string
}

// Document holds the parsed sections of a rule document.
type Document struct {
	Path       string
	Categories []CategoryDef
	Rules      []RuleDef
}

// Load reads and parses the rule document at path from fsys.
func Load(fsys afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("transfer: read %s: %w", path, err)
	}
	doc, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse decodes a document in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatTOML:
		return parseTOML(data)
	case FormatXML:
		return parseXML(data)
	}
	return nil, fmt.Errorf("transfer: unknown format %q", format)
}

// CategoryRules flattens the category definitions into classifier rules.
func (d *Document) CategoryRules() []category.Rule {
	var out []category.Rule
	for _, c := range d.Categories {
		for _, it := range c.Items {
			out = append(out, category.Rule{Tags: it.Tags, Lemma: it.Lemma, Name: c.Name})
		}
	}
	return out
}

// PatternRules returns the rules in declaration order.
func (d *Document) PatternRules() []pattern.Rule {
	out := make([]pattern.Rule, len(d.Rules))
	for i, r := range d.Rules {
		out[i] = pattern.Rule{Categories: r.Pattern, Comment: r.Comment}
	}
	return out
}

// defaultTags is used for a cat-item without a tags attribute.
const defaultTags = tagpattern.Wildcard
