// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDefaultPipelineConfigValid(t *testing.T) {
	if err := DefaultPipelineConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
		field  string
	}{
		{"negative depth", func(c *PipelineConfig) { c.MindMap.MaxDepth = -1 }, "mindmap.max_depth"},
		{"no children", func(c *PipelineConfig) { c.MindMap.MaxChildren = 0 }, "mindmap.max_children"},
		{"no map workers", func(c *PipelineConfig) { c.MindMap.Workers = 0 }, "mindmap.workers"},
		{"zero dedup threshold", func(c *PipelineConfig) { c.MindMap.DedupThreshold = 0 }, "mindmap.dedup_threshold"},
		{"dedup threshold above one", func(c *PipelineConfig) { c.MindMap.DedupThreshold = 1.5 }, "mindmap.dedup_threshold"},
		{"negative snippets", func(c *PipelineConfig) { c.MindMap.SnippetsPerNode = -1 }, "mindmap.snippets_per_node"},
		{"no section workers", func(c *PipelineConfig) { c.Synthesis.Workers = 0 }, "article.workers"},
		{"negative top k", func(c *PipelineConfig) { c.Synthesis.TopK = -1 }, "article.top_k"},
		{"unknown ranker", func(c *PipelineConfig) { c.Synthesis.Ranker = "embedding" }, "article.ranker"},
		{"too many passes", func(c *PipelineConfig) { c.Polish.Passes = 4 }, "polish.passes"},
		{"no passes", func(c *PipelineConfig) { c.Polish.Passes = 0 }, "polish.passes"},
		{"no output dir", func(c *PipelineConfig) { c.Output.Dir = "" }, "output.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			var ce *ConfigurationError
			if err := cfg.Validate(); !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("Validate() = %v, want ConfigurationError on %s", err, tt.field)
			}
		})
	}
}

func TestValidateAcceptsRootOnlyDepth(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.MindMap.MaxDepth = 0
	for _, r := range []string{RankerLexical, RankerBleve, RankerFTS} {
		cfg.Synthesis.Ranker = r
		if err := cfg.Validate(); err != nil {
			t.Errorf("ranker %s: %v", r, err)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := fmt.Errorf("dial: %w", context.DeadlineExceeded)
	ae := &AdapterError{Adapter: AdapterRetriever, Backend: "serper", Call: strings.Repeat("solar ", 20), Err: cause}
	if !ae.Timeout() {
		t.Error("Timeout() = false for a deadline error")
	}
	if !strings.Contains(ae.Error(), "retriever/serper") || !strings.Contains(ae.Error(), "...") {
		t.Errorf("Error() = %q, want backend and truncated call", ae.Error())
	}
	if (&AdapterError{Adapter: AdapterGenerator, Err: errors.New("bad request")}).Timeout() {
		t.Error("Timeout() = true for a non-deadline error")
	}

	se := &StageError{Stage: StageMindMap, Err: ae}
	var got *AdapterError
	if !errors.As(se, &got) || got != ae {
		t.Error("StageError does not unwrap to the AdapterError")
	}
	if !errors.Is(se, context.DeadlineExceeded) {
		t.Error("StageError chain lost the deadline cause")
	}

	st := &StructuralError{Stage: StageOutline, Detail: "no sections"}
	if st.Error() != "outline: malformed output: no sections" {
		t.Errorf("StructuralError = %q", st.Error())
	}
}

func TestSnippetKeyAndMerge(t *testing.T) {
	a := Snippet{Text: "Solar panels convert light.", URL: "https://Example.org/solar/"}
	sameA := Snippet{Text: "solar panels convert light", URL: "https://example.org/solar"}
	samePage := Snippet{Text: "Panel prices fell.", URL: "https://example.org/solar"}
	c := Snippet{Text: "Wind, turbines!"}
	d := Snippet{Text: "wind turbines"}

	if a.Key() != sameA.Key() {
		t.Errorf("keys differ for the same passage: %q vs %q", a.Key(), sameA.Key())
	}
	if a.Key() == samePage.Key() {
		t.Error("different passages of one page share a Key")
	}
	if a.PageKey() != samePage.PageKey() {
		t.Errorf("page keys differ: %q vs %q", a.PageKey(), samePage.PageKey())
	}
	if c.Key() != d.Key() || c.PageKey() != d.PageKey() {
		t.Errorf("text keys differ: %q vs %q", c.Key(), d.Key())
	}

	got := MergeSnippets([]Snippet{a, c}, []Snippet{sameA, samePage, d, {Text: "hydro"}})
	if len(got) != 4 || got[0].Text != a.Text || got[1].Text != c.Text || got[2].Text != samePage.Text || got[3].Text != "hydro" {
		t.Errorf("MergeSnippets = %+v", got)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Solar Power", "solar power"},
		{"  Photo-voltaic   cells! ", "photo voltaic cells"},
		{"R&D / Policy", "rd policy"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArticle(t *testing.T) {
	o := Outline{Sections: []OutlineSection{
		{Title: "Solar", Subsections: []string{"Photovoltaics"}},
		{Title: "Wind"},
	}}
	if got := o.Markdown(); got != "# Solar\n## Photovoltaics\n# Wind\n" {
		t.Errorf("Markdown() = %q", got)
	}

	a := NewArticle("Renewable Energy", o)
	if a.Complete() {
		t.Error("new article reports complete")
	}
	a.Sections[0].Body = "  Sunlight.  "
	a.Sections[0].Status = StatusWritten
	a.Sections[1].Body = "[Section unavailable: Wind]"
	a.Sections[1].Status = StatusPlaceholder

	if !a.Complete() {
		t.Error("article with all sections populated reports incomplete")
	}
	if f := a.Failed(); len(f) != 1 || f[0] != 1 {
		t.Errorf("Failed() = %v, want [1]", f)
	}
	want := "## Solar\n\nSunlight.\n\n## Wind\n\n[Section unavailable: Wind]"
	if got := a.Draft(); got != want {
		t.Errorf("Draft() = %q, want %q", got, want)
	}
}
