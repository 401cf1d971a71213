// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve"

	"github.com/pdiddy/omnithink/internal/mindmap"
)

// Bleve ranks entries with an in-memory bleve index (TF-IDF scoring over
// the concept and evidence text).
type Bleve struct{}

// Name implements Ranker.
func (Bleve) Name() string { return "bleve" }

type bleveDoc struct {
	Concept  string `json:"concept"`
	Evidence string `json:"evidence"`
}

// Build implements Ranker.
func (Bleve) Build(_ context.Context, entries []mindmap.Entry) (Index, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}

	batch := index.NewBatch()
	byID := make(map[string]mindmap.Entry, len(entries))
	for _, e := range entries {
		byID[e.NodeID] = e
		if err := batch.Index(e.NodeID, bleveDoc{Concept: e.Concept, Evidence: evidenceText(e)}); err != nil {
			index.Close()
			return nil, fmt.Errorf("indexing %s: %w", e.NodeID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("indexing entries: %w", err)
	}
	return &bleveIndex{index: index, byID: byID}, nil
}

type bleveIndex struct {
	index bleve.Index
	byID  map[string]mindmap.Entry
}

func (x *bleveIndex) TopK(ctx context.Context, query string, k int) ([]Result, error) {
	q := strings.Join(terms(query), " ")
	if q == "" || k <= 0 || len(x.byID) == 0 {
		return nil, nil
	}

	// Fetch every hit so ties can be broken by depth and insertion order.
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(q), len(x.byID), 0, false)
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching bleve index: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		e, ok := x.byID[hit.ID]
		if !ok || hit.Score <= 0 {
			continue
		}
		results = append(results, Result{Entry: e, Score: hit.Score})
	}
	return sortResults(results, k), nil
}

func (x *bleveIndex) Close() error { return x.index.Close() }
