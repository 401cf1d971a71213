// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/omnithink/internal/httputil"
	"github.com/pdiddy/omnithink/pkg/types"
)

// braveAPIBase is the Brave web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// braveMaxCount is the largest page size the Brave API accepts.
const braveMaxCount = 20

// BraveBackend queries the Brave Search API.
type BraveBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *BraveBackend) Name() string { return "brave" }

// Search queries Brave and returns the web results.
func (b *BraveBackend) Search(ctx context.Context, query string, topK int, cfg types.RetrievalConfig) ([]types.Snippet, error) {
	count := topK
	if count > braveMaxCount {
		count = braveMaxCount
	}
	params := url.Values{
		"q":     {query},
		"count": {fmt.Sprintf("%d", count)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Brave API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("Brave", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing Brave response: %w", err)
	}

	results := br.Web.Results
	if len(results) > topK {
		results = results[:topK]
	}
	snippets := make([]types.Snippet, 0, len(results))
	for i, r := range results {
		snippets = append(snippets, types.Snippet{
			Text:   r.Description,
			Title:  r.Title,
			URL:    r.URL,
			Score:  positionScore(i, len(results)),
			Source: "brave",
		})
	}
	return snippets, nil
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}
