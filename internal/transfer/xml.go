package transfer

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

type xmlDoc struct {
	DefCats *struct {
		Cats []struct {
			Name  string `xml:"n,attr"`
			Items []struct {
				Tags  *string `xml:"tags,attr"`
				Lemma string  `xml:"lemma,attr"`
			} `xml:"cat-item"`
		} `xml:"def-cat"`
	} `xml:"section-def-cats"`
	Rules *struct {
		Rules []struct {
			Comment string `xml:"comment,attr"`
			Items   []struct {
				Name string `xml:"n,attr"`
			} `xml:"pattern>pattern-item"`
		} `xml:"rule"`
	} `xml:"section-rules"`
}

func parseXML(data []byte) (*Document, error) {
	var raw xmlDoc
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("transfer: parse xml: %w", err)
	}
	if raw.DefCats == nil {
		return nil, fmt.Errorf("%w: section-def-cats", ErrMissingSection)
	}
	if raw.Rules == nil {
		return nil, fmt.Errorf("%w: section-rules", ErrMissingSection)
	}

	doc := &Document{}
	for _, c := range raw.DefCats.Cats {
		def := CategoryDef{Name: c.Name}
		for _, it := range c.Items {
			tags := defaultTags
			if it.Tags != nil {
				tags = *it.Tags
			}
			def.Items = append(def.Items, CatItem{Tags: tags, Lemma: it.Lemma})
		}
		doc.Categories = append(doc.Categories, def)
	}
	for _, r := range raw.Rules.Rules {
		rule := RuleDef{Comment: r.Comment}
		for _, it := range r.Items {
			rule.Pattern = append(rule.Pattern, it.Name)
		}
		doc.Rules = append(doc.Rules, rule)
	}
	return doc, nil
}
