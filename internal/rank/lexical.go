// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"

	"github.com/pdiddy/omnithink/internal/mindmap"
)

// Lexical scores entries by the share of query terms found in the concept
// (weight 2) and in the evidence (weight 1).
type Lexical struct{}

// Name implements Ranker.
func (Lexical) Name() string { return "lexical" }

// Build implements Ranker.
func (Lexical) Build(_ context.Context, entries []mindmap.Entry) (Index, error) {
	idx := &lexicalIndex{docs: make([]lexicalDoc, len(entries))}
	for i, e := range entries {
		idx.docs[i] = lexicalDoc{
			entry:    e,
			concept:  tokenSet(e.Concept),
			evidence: tokenSet(evidenceText(e)),
		}
	}
	return idx, nil
}

type lexicalDoc struct {
	entry    mindmap.Entry
	concept  map[string]bool
	evidence map[string]bool
}

type lexicalIndex struct {
	docs []lexicalDoc
}

func (x *lexicalIndex) TopK(ctx context.Context, query string, k int) ([]Result, error) {
	q := terms(query)
	if len(q) == 0 || k <= 0 {
		return nil, nil
	}
	var results []Result
	for _, d := range x.docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := 0.0
		for _, t := range q {
			if d.concept[t] {
				score += 2
			}
			if d.evidence[t] {
				score++
			}
		}
		if score > 0 {
			results = append(results, Result{Entry: d.entry, Score: score / float64(3*len(q))})
		}
	}
	return sortResults(results, k), nil
}

func (x *lexicalIndex) Close() error { return nil }

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range terms(s) {
		set[t] = true
	}
	return set
}
