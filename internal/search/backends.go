// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/omnithink/internal/guard"
	"github.com/pdiddy/omnithink/pkg/types"
)

// Backends builds the backends named in cfg.Backends. A keyed backend
// without its API key is a ConfigurationError; arxiv and openalex need none.
func Backends(cfg types.RetrievalConfig, client *http.Client) ([]Backend, error) {
	if len(cfg.Backends) == 0 {
		return nil, &types.ConfigurationError{Field: "retrieval.backends", Detail: "no search backends configured"}
	}

	var out []Backend
	for _, name := range cfg.Backends {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "serper":
			if cfg.SerperAPIKey == "" {
				return nil, &types.ConfigurationError{Field: "retrieval.serper_api_key", Detail: "set SERPER_API_KEY or .secrets/serper-api-key"}
			}
			out = append(out, &SerperBackend{Client: client, APIKey: cfg.SerperAPIKey})
		case "brave":
			if cfg.BraveAPIKey == "" {
				return nil, &types.ConfigurationError{Field: "retrieval.brave_api_key", Detail: "set BRAVE_API_KEY or .secrets/brave-api-key"}
			}
			out = append(out, &BraveBackend{Client: client, APIKey: cfg.BraveAPIKey})
		case "arxiv":
			out = append(out, &ArxivBackend{Client: client})
		case "openalex":
			out = append(out, &OpenAlexBackend{Client: client, Email: cfg.Email})
		default:
			return nil, &types.ConfigurationError{Field: "retrieval.backends", Detail: fmt.Sprintf("unknown backend %q: use serper, brave, arxiv, or openalex", name)}
		}
	}
	return out, nil
}

// statusError converts a non-200 response into an error. Authentication and
// request errors are permanent; the guard does not retry them.
func statusError(backend string, status int) error {
	err := fmt.Errorf("%s API returned HTTP %d", backend, status)
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return guard.Permanent(err)
	}
	return err
}
