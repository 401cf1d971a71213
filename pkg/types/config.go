// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by adapters that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single adapter call, including retries of that call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "omnithink/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetrievalConfig holds settings for the concept retriever.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// Backends lists the search backends to fan out to ("serper", "brave",
	// "arxiv", "openalex").
	Backends []string `json:"backends" yaml:"backends"`

	// SerperAPIKey authenticates against the Serper API.
	SerperAPIKey string `json:"serper_api_key,omitempty" yaml:"serper_api_key,omitempty"`

	// BraveAPIKey authenticates against the Brave Search API.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`

	// Email is sent to OpenAlex as the mailto parameter for the polite pool.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// MaxRetries is the number of retries for transient failures of one call (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BreakerFailures is the number of consecutive failures after which the
	// retriever fails fast for BreakerCooldown (0 disables the breaker).
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures"`

	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// GeneratorConfig holds shared settings for calls to the language model.
type GeneratorConfig struct {
	// Provider selects the model backend: claude, openai, or gemini.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retries for transient failures of one call (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds a single completion call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxTokens is the default completion budget.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the default sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// TopP is the default nucleus sampling parameter.
	TopP float64 `json:"top_p" yaml:"top_p"`

	// BreakerFailures is the number of consecutive failures after which the
	// generator fails fast for BreakerCooldown (0 disables the breaker).
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures"`

	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// MindMapConfig holds settings for mind map construction.
type MindMapConfig struct {
	// MaxDepth bounds the depth of any concept node (0 = root only).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxChildren bounds the number of candidate concepts requested per parent.
	MaxChildren int `json:"max_children" yaml:"max_children"`

	// SnippetsPerNode is the top_k passed to the retriever for each node.
	SnippetsPerNode int `json:"snippets_per_node" yaml:"snippets_per_node"`

	// Workers bounds the number of parents expanded concurrently within a layer.
	Workers int `json:"workers" yaml:"workers"`

	// DedupThreshold is the similarity at which two concepts of one layer
	// collapse: 1.0 means exact normalized match, lower values use token-set
	// Jaccard similarity.
	DedupThreshold float64 `json:"dedup_threshold" yaml:"dedup_threshold"`

	// AncestorContext prefixes each node query with its ancestor path.
	AncestorContext bool `json:"ancestor_context" yaml:"ancestor_context"`

	// SearchLeaves retrieves evidence for the final layer's nodes.
	SearchLeaves bool `json:"search_leaves" yaml:"search_leaves"`
}

// Ranker names accepted by SynthesisConfig.Ranker.
const (
	RankerLexical = "lexical"
	RankerBleve   = "bleve"
	RankerFTS     = "fts"
)

// SynthesisConfig holds settings for the article synthesis stage.
type SynthesisConfig struct {
	// Workers bounds the number of sections generated concurrently.
	Workers int `json:"workers" yaml:"workers"`

	// TopK is the number of retrieval table entries given to each section.
	TopK int `json:"top_k" yaml:"top_k"`

	// Ranker selects the evidence ranking strategy: lexical, bleve, or fts.
	Ranker string `json:"ranker" yaml:"ranker"`

	// MaxTokens is the completion budget for one section.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// FailOnPlaceholder aborts the pipeline when any section ends as a placeholder.
	FailOnPlaceholder bool `json:"fail_on_placeholder" yaml:"fail_on_placeholder"`
}

// PolishConfig holds settings for the polishing stage.
type PolishConfig struct {
	// Passes is the number of revision passes (1-3).
	Passes int `json:"passes" yaml:"passes"`

	// TargetWords is the length hint given to the model (0 = keep length).
	TargetWords int `json:"target_words" yaml:"target_words"`

	// MaxTokens is the completion budget for one pass.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// OutputConfig holds settings for the persisted artifacts.
type OutputConfig struct {
	// Dir is the directory the article (and optional exports) are written to.
	Dir string `json:"dir" yaml:"dir"`

	// ExportMindMap writes the nested mind map JSON next to the article.
	ExportMindMap bool `json:"export_mindmap" yaml:"export_mindmap"`

	// MetricsFile, when set, receives the run metrics in Prometheus text format.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

// PipelineConfig groups all stage configurations for the pipeline. It is
// built once at process start and passed down explicitly.
type PipelineConfig struct {
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	MindMap   MindMapConfig   `json:"mindmap" yaml:"mindmap"`
	Synthesis SynthesisConfig `json:"article" yaml:"article"`
	Polish    PolishConfig    `json:"polish" yaml:"polish"`
	Output    OutputConfig    `json:"output" yaml:"output"`
}

// DefaultPipelineConfig returns the configuration used when nothing is overridden.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Retrieval: RetrievalConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   20 * time.Second,
				UserAgent: "omnithink/0.1",
			},
			Backends:        []string{"serper"},
			MaxRetries:      1,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Generator: GeneratorConfig{
			Provider:        "claude",
			Model:           "claude-sonnet-4-5",
			MaxRetries:      2,
			Timeout:         120 * time.Second,
			MaxTokens:       2048,
			Temperature:     1.0,
			TopP:            0.9,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		MindMap: MindMapConfig{
			MaxDepth:        2,
			MaxChildren:     3,
			SnippetsPerNode: 5,
			Workers:         4,
			DedupThreshold:  1.0,
			AncestorContext: true,
			SearchLeaves:    true,
		},
		Synthesis: SynthesisConfig{
			Workers:   4,
			TopK:      5,
			Ranker:    RankerLexical,
			MaxTokens: 2048,
		},
		Polish: PolishConfig{
			Passes:    1,
			MaxTokens: 8192,
		},
		Output: OutputConfig{
			Dir:           "results/article",
			ExportMindMap: true,
		},
	}
}

// Validate checks settings that would make a run impossible. It does not
// check credentials; the adapter constructors report those.
func (c PipelineConfig) Validate() error {
	switch {
	case c.MindMap.MaxDepth < 0:
		return &ConfigurationError{Field: "mindmap.max_depth", Detail: fmt.Sprintf("must be >= 0, got %d", c.MindMap.MaxDepth)}
	case c.MindMap.MaxChildren < 1:
		return &ConfigurationError{Field: "mindmap.max_children", Detail: fmt.Sprintf("must be >= 1, got %d", c.MindMap.MaxChildren)}
	case c.MindMap.Workers < 1:
		return &ConfigurationError{Field: "mindmap.workers", Detail: fmt.Sprintf("must be >= 1, got %d", c.MindMap.Workers)}
	case c.MindMap.DedupThreshold <= 0 || c.MindMap.DedupThreshold > 1:
		return &ConfigurationError{Field: "mindmap.dedup_threshold", Detail: fmt.Sprintf("must be in (0,1], got %g", c.MindMap.DedupThreshold)}
	case c.MindMap.SnippetsPerNode < 0:
		return &ConfigurationError{Field: "mindmap.snippets_per_node", Detail: "must be >= 0"}
	case c.Synthesis.Workers < 1:
		return &ConfigurationError{Field: "article.workers", Detail: fmt.Sprintf("must be >= 1, got %d", c.Synthesis.Workers)}
	case c.Synthesis.TopK < 0:
		return &ConfigurationError{Field: "article.top_k", Detail: "must be >= 0"}
	case c.Polish.Passes < 1 || c.Polish.Passes > 3:
		return &ConfigurationError{Field: "polish.passes", Detail: fmt.Sprintf("must be between 1 and 3, got %d", c.Polish.Passes)}
	case c.Output.Dir == "":
		return &ConfigurationError{Field: "output.dir", Detail: "must not be empty"}
	}

	switch c.Synthesis.Ranker {
	case RankerLexical, RankerBleve, RankerFTS:
	default:
		return &ConfigurationError{Field: "article.ranker", Detail: fmt.Sprintf("unknown ranker %q: use lexical, bleve, or fts", c.Synthesis.Ranker)}
	}
	return nil
}
