// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the concept generator adapter: a narrow Complete call over
// a hosted language model. Backends (Claude, OpenAI, Gemini) implement the
// Strategy pattern so tests can supply a fake; Client adds defaults, the
// per-call timeout, retry, and the circuit breaker.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/omnithink/internal/guard"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/pkg/types"
)

// Options are the sampling settings of one completion. Zero fields take
// the client defaults.
type Options struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Generator produces text for a prompt. An empty string is a valid
// response. Implementations must be safe for concurrent use.
type Generator interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Complete calls f.
func (f GeneratorFunc) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Backend is one model provider.
type Backend interface {
	Generator
	Name() string
}

// Client is the guarded Generator handed to the pipeline stages.
type Client struct {
	backend  Backend
	guard    *guard.Guard
	defaults Options
	log      *zap.Logger
}

// NewClient wraps backend with the defaults and guard settings of cfg.
func NewClient(backend Backend, cfg types.GeneratorConfig, log *zap.Logger, m *metrics.Collector) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		backend: backend,
		guard: guard.New(guard.Settings{
			Adapter:         types.AdapterGenerator,
			Backend:         backend.Name(),
			Timeout:         cfg.Timeout,
			MaxRetries:      cfg.MaxRetries,
			BreakerFailures: cfg.BreakerFailures,
			BreakerCooldown: cfg.BreakerCooldown,
		}, log, m),
		defaults: Options{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		},
		log: log,
	}
}

// New builds the Client for cfg.Provider. A missing API key is a
// ConfigurationError.
func New(ctx context.Context, cfg types.GeneratorConfig, log *zap.Logger, m *metrics.Collector) (*Client, error) {
	provider := strings.ToLower(cfg.Provider)
	if cfg.APIKey == "" {
		return nil, &types.ConfigurationError{
			Field:  "generator.api_key",
			Detail: fmt.Sprintf("no API key for provider %q", provider),
		}
	}
	if cfg.Model == "" {
		return nil, &types.ConfigurationError{Field: "generator.model", Detail: "must not be empty"}
	}

	var backend Backend
	switch provider {
	case "claude", "anthropic":
		backend = NewClaudeBackend(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openai":
		backend = NewOpenAIBackend(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		b, err := NewGeminiBackend(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		backend = b
	default:
		return nil, &types.ConfigurationError{
			Field:  "generator.provider",
			Detail: fmt.Sprintf("unsupported provider %q: use claude, openai, or gemini", cfg.Provider),
		}
	}
	return NewClient(backend, cfg, log, m), nil
}

// Backend returns the name of the wrapped backend.
func (c *Client) Backend() string { return c.backend.Name() }

// Complete runs the prompt through the guarded backend. Failures are
// *types.AdapterError.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	opts = c.withDefaults(opts)
	out, err := guard.Do(ctx, c.guard, prompt, func(ctx context.Context) (string, error) {
		return c.backend.Complete(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	c.log.Debug("completion",
		zap.String("backend", c.backend.Name()),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("response_chars", len(out)))
	return out, nil
}

func (c *Client) withDefaults(opts Options) Options {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.defaults.Temperature
	}
	if opts.TopP == 0 {
		opts.TopP = c.defaults.TopP
	}
	return opts
}

const defaultMaxTokens = 2048
