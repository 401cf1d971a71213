// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041v12", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/solv-int/9901001v2", "solv-int/9901001"},
		{"http://arxiv.org/pdf/2301.07041", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := extractArxivID(tt.in); got != tt.want {
				t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Perovskite Solar
      Cells</title>
    <summary>  Perovskite cells reach
      high efficiency.  </summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v1</id>
    <title>Empty</title>
    <summary></summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2303.00002v1</id>
    <title>Tandem Cells</title>
    <summary>Tandem designs stack absorbers.</summary>
  </entry>
</feed>`

func arxivTestServer(t *testing.T, status int, body string, check func(*http.Request)) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })
}

func TestArxivBackendSearch(t *testing.T) {
	var gotQuery, gotMax string
	arxivTestServer(t, http.StatusOK, sampleArxivFeed, func(r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		gotMax = r.URL.Query().Get("max_results")
	})

	got, err := (&ArxivBackend{}).Search(context.Background(), "perovskite solar", 3, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "all:perovskite AND all:solar" || gotMax != "3" {
		t.Errorf("search_query = %q, max_results = %q", gotQuery, gotMax)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2 (entry without summary skipped)", len(got))
	}
	first := got[0]
	if first.Title != "Perovskite Solar Cells" || first.Text != "Perovskite cells reach high efficiency." {
		t.Errorf("whitespace not collapsed: %+v", first)
	}
	if first.URL != "https://arxiv.org/abs/2301.07041" || first.Source != "arxiv" {
		t.Errorf("first snippet = %+v", first)
	}
	if got[1].URL != "https://arxiv.org/abs/2303.00002" {
		t.Errorf("second URL = %q", got[1].URL)
	}
}

func TestArxivBackendTruncatesToTopK(t *testing.T) {
	arxivTestServer(t, http.StatusOK, sampleArxivFeed, nil)
	got, err := (&ArxivBackend{}).Search(context.Background(), "solar", 1, testCfg())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d snippets, want 1", len(got))
	}
}

func TestArxivBackendEmptyQuery(t *testing.T) {
	got, err := (&ArxivBackend{}).Search(context.Background(), " ", 5, testCfg())
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestArxivBackendErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		arxivTestServer(t, http.StatusInternalServerError, "", nil)
		if _, err := (&ArxivBackend{}).Search(context.Background(), "solar", 5, testCfg()); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("malformed feed", func(t *testing.T) {
		arxivTestServer(t, http.StatusOK, "<feed><entry>", nil)
		if _, err := (&ArxivBackend{}).Search(context.Background(), "solar", 5, testCfg()); err == nil {
			t.Error("expected parse error")
		}
	})
}
