package transfer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/papapumpkin/rulecover/internal/category"
	"github.com/papapumpkin/rulecover/internal/pattern"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<transfer default="chunk">
  <section-def-cats>
    <def-cat n="det">
      <cat-item tags="det.*"/>
    </def-cat>
    <def-cat n="nom">
      <cat-item tags="n.*"/>
      <cat-item lemma="Paris" tags="np.loc"/>
    </def-cat>
    <def-cat n="any">
      <cat-item lemma="and"/>
    </def-cat>
  </section-def-cats>
  <section-def-attrs/>
  <section-rules>
    <rule comment="REGLA: DET NOM">
      <pattern>
        <pattern-item n="det"/>
        <pattern-item n="nom"/>
      </pattern>
      <action><out/></action>
    </rule>
    <rule>
      <pattern>
        <pattern-item n="nom"/>
      </pattern>
      <action/>
    </rule>
  </section-rules>
</transfer>
`

const sampleTOML = `
[[category]]
name = "det"
items = [{ tags = "det.*" }]

[[category]]
name = "nom"
items = [{ tags = "n.*" }, { tags = "np.loc", lemma = "Paris" }]

[[category]]
name = "any"
items = [{ lemma = "and" }]

[[rule]]
comment = "REGLA: DET NOM"
pattern = ["det", "nom"]

[[rule]]
pattern = ["nom"]
`

func wantSample() *Document {
	return &Document{
		Categories: []CategoryDef{
			{Name: "det", Items: []CatItem{{Tags: "det.*"}}},
			{Name: "nom", Items: []CatItem{{Tags: "n.*"}, {Tags: "np.loc", Lemma: "Paris"}}},
			{Name: "any", Items: []CatItem{{Tags: "*", Lemma: "and"}}},
		},
		Rules: []RuleDef{
			{Pattern: []string{"det", "nom"}, Comment: "REGLA: DET NOM"},
			{Pattern: []string{"nom"}},
		},
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"xml", sampleXML, FormatXML},
		{"toml", sampleTOML, FormatTOML},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(wantSample(), doc); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMissingSection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"xml without rules", `<transfer><section-def-cats/></transfer>`, FormatXML},
		{"xml without categories", `<transfer><section-rules/></transfer>`, FormatXML},
		{"toml without rules", "[[category]]\nname = \"x\"\n", FormatTOML},
		{"toml without categories", "[[rule]]\npattern = [\"x\"]\n", FormatTOML},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data), tt.format)
			if !errors.Is(err, ErrMissingSection) {
				t.Errorf("err = %v, want ErrMissingSection", err)
			}
		})
	}
}

func TestParseUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(sampleXML), Format("yaml")); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/rules/en-es.t1x", []byte(sampleXML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/rules/en-es.toml", []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/rules/en-es.t1x", "/rules/en-es.toml"} {
		doc, err := Load(fsys, path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if doc.Path != path {
			t.Errorf("Path = %q, want %q", doc.Path, path)
		}
		if len(doc.Rules) != 2 || len(doc.Categories) != 3 {
			t.Errorf("Load(%s): %d rules, %d categories", path, len(doc.Rules), len(doc.Categories))
		}
	}

	if _, err := Load(fsys, "/rules/missing.t1x"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"apertium-en-es.en-es.t1x": FormatXML,
		"rules.TOML":               FormatTOML,
		"rules.toml":               FormatTOML,
		"rules":                    FormatXML,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDocumentConversions(t *testing.T) {
	t.Parallel()

	doc := wantSample()

	wantCats := []category.Rule{
		{Tags: "det.*", Name: "det"},
		{Tags: "n.*", Name: "nom"},
		{Tags: "np.loc", Lemma: "Paris", Name: "nom"},
		{Tags: "*", Lemma: "and", Name: "any"},
	}
	if diff := cmp.Diff(wantCats, doc.CategoryRules()); diff != "" {
		t.Errorf("CategoryRules mismatch (-want +got):\n%s", diff)
	}

	wantRules := []pattern.Rule{
		{Categories: []string{"det", "nom"}, Comment: "REGLA: DET NOM"},
		{Categories: []string{"nom"}},
	}
	if diff := cmp.Diff(wantRules, doc.PatternRules()); diff != "" {
		t.Errorf("PatternRules mismatch (-want +got):\n%s", diff)
	}
}
