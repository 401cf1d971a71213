// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank selects the retrieval table entries most relevant to a
// section query. Rankers are strategies: lexical token overlap (default),
// a bleve in-memory index, and a SQLite FTS5 index scored with bm25.
package rank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/omnithink/internal/mindmap"
	"github.com/pdiddy/omnithink/pkg/types"
)

// Result is one ranked entry.
type Result struct {
	Entry mindmap.Entry
	Score float64
}

// Index answers top-K queries over a fixed set of entries. It is safe for
// concurrent queries.
type Index interface {
	TopK(ctx context.Context, query string, k int) ([]Result, error)
	Close() error
}

// Ranker builds an Index over retrieval table entries.
type Ranker interface {
	Name() string
	Build(ctx context.Context, entries []mindmap.Entry) (Index, error)
}

// New returns the ranker registered under name.
func New(name string) (Ranker, error) {
	switch name {
	case "", types.RankerLexical:
		return Lexical{}, nil
	case types.RankerBleve:
		return Bleve{}, nil
	case types.RankerFTS:
		if err := ftsSupported(); err != nil {
			return nil, &types.ConfigurationError{
				Field:  "article.ranker",
				Detail: fmt.Sprintf("fts ranker unavailable, build with -tags sqlite_fts5: %v", err),
			}
		}
		return FTS{}, nil
	}
	return nil, &types.ConfigurationError{
		Field:  "article.ranker",
		Detail: fmt.Sprintf("unknown ranker %q: use lexical, bleve, or fts", name),
	}
}

// sortResults orders by score, then evidence recency (deeper layers were
// retrieved later), then insertion order, and keeps the first k.
func sortResults(results []Result, k int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Entry.Depth != b.Entry.Depth {
			return a.Entry.Depth > b.Entry.Depth
		}
		return a.Entry.Order < b.Entry.Order
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// evidenceText is the indexed evidence of an entry: titles and snippets.
func evidenceText(e mindmap.Entry) string {
	var b strings.Builder
	for _, s := range e.Evidence {
		b.WriteString(s.Title)
		b.WriteByte(' ')
		b.WriteString(s.Text)
		b.WriteByte(' ')
	}
	return b.String()
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "or": true,
	"in": true, "on": true, "for": true, "to": true, "with": true, "by": true,
	"is": true, "are": true, "as": true, "at": true, "from": true, "its": true,
	"their": true, "how": true, "what": true, "why": true,
}

// terms returns the distinct non-stopword tokens of s in first-seen order.
func terms(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range strings.Fields(types.NormalizeText(s)) {
		if stopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
