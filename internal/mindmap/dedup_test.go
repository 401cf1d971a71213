// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mindmap

import (
	"strings"
	"testing"

	"github.com/pdiddy/omnithink/pkg/types"
)

func TestSimilar(t *testing.T) {
	tests := []struct {
		a, b      string
		threshold float64
		want      bool
	}{
		{"solar power", "solar power", 1.0, true},
		{"solar power", "solar", 1.0, false},
		{"solar power", "solar power plants", 0.6, true},
		{"solar power", "wind power", 0.6, false},
		{"solar power", "wind power", 0.3, true},
	}
	for _, tt := range tests {
		if got := similar(tt.a, tt.b, tt.threshold); got != tt.want {
			t.Errorf("similar(%q, %q, %v) = %v, want %v", tt.a, tt.b, tt.threshold, got, tt.want)
		}
	}
}

func TestDedupLayer(t *testing.T) {
	ev := func(url string) []types.Snippet { return []types.Snippet{{Text: "t", URL: url}} }
	cands := []candidate{
		{text: "Grid Storage", key: "grid storage", parent: "n1", evidence: ev("a")},
		{text: "Hydrogen", key: "hydrogen", parent: "n1"},
		{text: "grid-storage", key: "grid storage", parent: "n2", evidence: ev("b")},
		{text: "Grid Storage", key: "grid storage", parent: "n2", evidence: ev("b")},
		{text: "Energy", key: "energy", parent: "n2"},
		{text: "", key: "", parent: "n2"},
	}

	res := dedupLayer(cands, []string{"energy"}, 1.0)
	if len(res.survivors) != 2 {
		t.Fatalf("survivors = %d, want 2", len(res.survivors))
	}
	if res.merged != 2 || res.dropped != 2 {
		t.Errorf("merged=%d dropped=%d, want 2 and 2", res.merged, res.dropped)
	}

	grid := res.survivors[0]
	if grid.text != "Grid Storage" || grid.parent != "n1" {
		t.Errorf("owner = %q/%s, want first occurrence", grid.text, grid.parent)
	}
	if strings.Join(grid.secondary, ",") != "n2" {
		t.Errorf("secondary = %v, want [n2] once", grid.secondary)
	}
	if len(grid.evidence) != 2 {
		t.Errorf("evidence = %d snippets, want union of 2", len(grid.evidence))
	}
}

func TestDedupLayerKeepsDistinctPassagesOfOnePage(t *testing.T) {
	const page = "https://example.com/solar"
	cands := []candidate{
		{text: "Solar Power", key: "solar power", parent: "n1", evidence: []types.Snippet{{Text: "Solar capacity doubled.", URL: page}}},
		{text: "solar power", key: "solar power", parent: "n2", evidence: []types.Snippet{
			{Text: "Rooftop panels dominate.", URL: page},
			{Text: "solar capacity doubled", URL: page + "/"},
		}},
	}

	res := dedupLayer(cands, nil, 1.0)
	if len(res.survivors) != 1 {
		t.Fatalf("survivors = %d, want 1", len(res.survivors))
	}
	ev := res.survivors[0].evidence
	if len(ev) != 2 {
		t.Fatalf("evidence = %d snippets, want 2 distinct passages: %+v", len(ev), ev)
	}
	if ev[0].Text != "Solar capacity doubled." || ev[1].Text != "Rooftop panels dominate." {
		t.Errorf("evidence = %+v, want owner's passage first", ev)
	}
}

func TestParseConcepts(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		max    int
		want   []string
		wantOK bool
	}{
		{"json array", `["Solar", "Wind"]`, 5, []string{"Solar", "Wind"}, true},
		{"fenced json", "```json\n[\"Solar\"]\n```", 5, []string{"Solar"}, true},
		{"objects", `[{"name":"Tidal"},{"concept":"Wave"}]`, 5, []string{"Tidal", "Wave"}, true},
		{"capped", `["a","b","c"]`, 2, []string{"a", "b"}, true},
		{"duplicates removed", `["Solar","solar.","Wind"]`, 5, []string{"Solar", "Wind"}, true},
		{"bullet lines", "Here are the concepts:\n- Solar\n* Wind\n1. Hydro\n2) Geothermal", 5, []string{"Solar", "Wind", "Hydro", "Geothermal"}, true},
		{"leading digits kept", "3D printing", 5, []string{"3D printing"}, true},
		{"empty response", "   ", 5, nil, true},
		{"empty array", "[]", 5, nil, true},
		{"broken json", `["Solar", `, 5, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseConcepts(tt.in, tt.max)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMentioning(t *testing.T) {
	snippets := []types.Snippet{
		{Text: "Grid-scale storage is growing", URL: "a"},
		{Text: "Storage of grain", URL: "b"},
		{Title: "Grid storage", Text: "overview", URL: "c"},
	}
	got := mentioning(snippets, "grid storage")
	if len(got) != 2 || got[0].URL != "a" || got[1].URL != "c" {
		t.Errorf("got %+v", got)
	}
	if mentioning(snippets, "") != nil {
		t.Error("empty key must match nothing")
	}
}

func TestExpandPromptIncludesContext(t *testing.T) {
	prompt, err := renderExpandPrompt(expandPromptData{
		Topic:       "Renewable Energy",
		Concept:     "Solar",
		Path:        []string{"Renewable Energy", "Solar"},
		Snippets:    []types.Snippet{{Title: "PV", Text: strings.Repeat("x", 1000)}},
		Existing:    []string{"renewable energy", "solar"},
		MaxChildren: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Current concept: Solar", "Renewable Energy > Solar", "[1] PV: ", "at most 3", "renewable energy; solar"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, strings.Repeat("x", 500)) {
		t.Error("snippet text not clipped")
	}
}
