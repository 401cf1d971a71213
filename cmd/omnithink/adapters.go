// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/search"
	"github.com/pdiddy/omnithink/pkg/types"
)

func newRetriever(cfg types.PipelineConfig) (*search.MultiRetriever, error) {
	backends, err := search.Backends(cfg.Retrieval, &http.Client{})
	if err != nil {
		return nil, err
	}
	return search.NewRetriever(backends, cfg.Retrieval, logger, collector)
}

func newGenerator(ctx context.Context, cfg types.PipelineConfig) (*llm.Client, error) {
	return llm.New(ctx, cfg.Generator, logger, collector)
}
