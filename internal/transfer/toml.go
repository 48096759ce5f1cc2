package transfer

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

type tomlDoc struct {
	Categories []tomlCategory `toml:"category"`
	Rules      []tomlRule     `toml:"rule"`
}

type tomlCategory struct {
	Name  string     `toml:"name"`
	Items []tomlItem `toml:"items"`
}

type tomlItem struct {
	Tags  *string `toml:"tags"`
	Lemma string  `toml:"lemma"`
}

type tomlRule struct {
	Comment string   `toml:"comment"`
	Pattern []string `toml:"pattern"`
}

func parseTOML(data []byte) (*Document, error) {
	var raw tomlDoc
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("transfer: parse toml: %w", err)
	}
	if raw.Categories == nil {
		return nil, fmt.Errorf("%w: category", ErrMissingSection)
	}
	if raw.Rules == nil {
		return nil, fmt.Errorf("%w: rule", ErrMissingSection)
	}

	doc := &Document{}
	for _, c := range raw.Categories {
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
	for _, r := range raw.Rules {
		doc.Rules = append(doc.Rules, RuleDef{Pattern: r.Pattern, Comment: r.Comment})
	}
	return doc, nil
}
