// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/omnithink/internal/httputil"
	"github.com/pdiddy/omnithink/pkg/types"
)

// serperAPIURL is the Serper Google search endpoint. Declared as a var so
// tests can substitute an httptest server.
var serperAPIURL = "https://google.serper.dev/search"

// SerperBackend queries Google results through serper.dev.
type SerperBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *SerperBackend) Name() string { return "serper" }

// Search posts the query to Serper and returns the organic results.
func (b *SerperBackend) Search(ctx context.Context, query string, topK int, cfg types.RetrievalConfig) ([]types.Snippet, error) {
	body, err := json.Marshal(serperRequest{Q: query, Num: topK})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", b.APIKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Serper API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("Serper", resp.StatusCode)
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Serper response: %w", err)
	}

	organic := sr.Organic
	if len(organic) > topK {
		organic = organic[:topK]
	}
	snippets := make([]types.Snippet, 0, len(organic))
	for i, o := range organic {
		snippets = append(snippets, types.Snippet{
			Text:   o.Snippet,
			Title:  o.Title,
			URL:    o.Link,
			Score:  positionScore(i, len(organic)),
			Source: "serper",
		})
	}
	return snippets, nil
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []serperOrganic `json:"organic"`
}

type serperOrganic struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}
