// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search is the concept retriever adapter: it queries web and
// scholarly search backends and returns unified, deduplicated evidence
// snippets.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/omnithink/internal/guard"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/pkg/types"
)

// Retriever returns up to topK snippets for a query in descending relevance
// order. No results is an empty slice, not an error. Failures are
// *types.AdapterError. Implementations must be safe for concurrent use.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]types.Snippet, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, query string, topK int) ([]types.Snippet, error)

// Search calls f.
func (f RetrieverFunc) Search(ctx context.Context, query string, topK int) ([]types.Snippet, error) {
	return f(ctx, query, topK)
}

// Backend searches a single web search API. Each backend (Serper, Brave)
// implements this interface per the Strategy pattern.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, topK int, cfg types.RetrievalConfig) ([]types.Snippet, error)
}

type guardedBackend struct {
	Backend
	guard *guard.Guard
}

// MultiRetriever fans a query out to every configured backend.
type MultiRetriever struct {
	backends []guardedBackend
	cfg      types.RetrievalConfig
	log      *zap.Logger
}

// NewRetriever wraps backends with the timeout, retry and breaker settings
// of cfg.
func NewRetriever(backends []Backend, cfg types.RetrievalConfig, log *zap.Logger, m *metrics.Collector) (*MultiRetriever, error) {
	if len(backends) == 0 {
		return nil, &types.ConfigurationError{Field: "retrieval.backends", Detail: "no search backends configured"}
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &MultiRetriever{cfg: cfg, log: log}
	for _, b := range backends {
		r.backends = append(r.backends, guardedBackend{
			Backend: b,
			guard: guard.New(guard.Settings{
				Adapter:         types.AdapterRetriever,
				Backend:         b.Name(),
				Timeout:         cfg.Timeout,
				MaxRetries:      cfg.MaxRetries,
				BreakerFailures: cfg.BreakerFailures,
				BreakerCooldown: cfg.BreakerCooldown,
			}, log, m),
		})
	}
	return r, nil
}

// Search queries all backends concurrently, merges snippets that share a
// source URL, ranks by score and returns the top topK. A failing backend is
// a warning as long as another one answers; when every backend fails the
// first backend's error is returned.
func (r *MultiRetriever) Search(ctx context.Context, query string, topK int) ([]types.Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return []types.Snippet{}, nil
	}

	type backendResult struct {
		idx      int
		snippets []types.Snippet
		err      error
	}

	ch := make(chan backendResult, len(r.backends))
	var wg sync.WaitGroup

	for i, b := range r.backends {
		wg.Add(1)
		go func(i int, b guardedBackend) {
			defer wg.Done()
			snippets, err := guard.Do(ctx, b.guard, query, func(ctx context.Context) ([]types.Snippet, error) {
				return b.Search(ctx, query, topK, r.cfg)
			})
			ch <- backendResult{idx: i, snippets: snippets, err: err}
		}(i, b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	// Collect by backend index so the merge order is deterministic.
	perBackend := make([][]types.Snippet, len(r.backends))
	errs := make([]error, len(r.backends))
	failed := 0
	for br := range ch {
		if br.err != nil {
			errs[br.idx] = br.err
			failed++
			continue
		}
		perBackend[br.idx] = br.snippets
	}

	if failed == len(r.backends) {
		return nil, errs[0]
	}
	for i, err := range errs {
		if err != nil {
			r.log.Warn("search backend failed",
				zap.String("backend", r.backends[i].Name()),
				zap.String("query", query),
				zap.Error(err))
		}
	}

	var all []types.Snippet
	for _, s := range perBackend {
		all = append(all, s...)
	}
	merged := deduplicate(all)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// deduplicate merges snippets that share a PageKey, keeping the first
// occurrence's position.
func deduplicate(snippets []types.Snippet) []types.Snippet {
	seen := make(map[string]int)
	out := make([]types.Snippet, 0, len(snippets))
	for _, s := range snippets {
		if strings.TrimSpace(s.Text) == "" && s.Title == "" {
			continue
		}
		key := s.PageKey()
		if idx, ok := seen[key]; ok {
			mergeInto(&out[idx], s)
			continue
		}
		seen[key] = len(out)
		out = append(out, s)
	}
	return out
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.Snippet, src types.Snippet) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(src.Text) > len(dst.Text) {
		dst.Text = src.Text
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		if dst.Source == "" {
			dst.Source = src.Source
		} else {
			dst.Source += "," + src.Source
		}
	}
}

// positionScore maps a result's rank to a relevance score in (0,1] for
// backends that return ordered results without scores.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// FormatTable writes snippets as a human-readable table to w.
func FormatTable(snippets []types.Snippet, w io.Writer) {
	if len(snippets) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-6s  %-10s  %s\n", "Rank", "Title", "Score", "Source", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, s := range snippets {
		fmt.Fprintf(w, "%-4d  %-50s  %-6.2f  %-10s  %s\n",
			i+1, truncate(s.Title, 50), s.Score, truncate(s.Source, 10), s.URL)
	}
	fmt.Fprintf(w, "\n%d results\n", len(snippets))
}

// FormatJSON writes snippets as indented JSON to w.
func FormatJSON(snippets []types.Snippet, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snippets)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
