// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

// ClaudeBackend calls the Anthropic Messages API.
type ClaudeBackend struct {
	client *anthropic.Client
	model  string
}

// NewClaudeBackend creates a backend for model. baseURL is optional.
func NewClaudeBackend(apiKey, model, baseURL string) *ClaudeBackend {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeBackend{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// Name implements Backend.
func (c *ClaudeBackend) Name() string { return "claude" }

// Complete implements Generator.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)},
			},
		},
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		req.Temperature = &t
	}
	if opts.TopP > 0 && opts.Temperature == 0 {
		// The API rejects temperature and top_p together on newer models.
		p := float32(opts.TopP)
		req.TopP = &p
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Text != nil {
			b.WriteString(*block.Text)
		}
	}
	return b.String(), nil
}
