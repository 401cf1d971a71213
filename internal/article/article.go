// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package article writes the article draft: every outline section is
// synthesized concurrently from the retrieval table entries ranked most
// relevant to it, and the sections are assembled in outline order.
package article

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/internal/mindmap"
	"github.com/pdiddy/omnithink/internal/rank"
	"github.com/pdiddy/omnithink/internal/search"
	"github.com/pdiddy/omnithink/pkg/types"
)

// maxAttempts is the first try plus one retry.
const maxAttempts = 2

// Placeholder returns the body given to a section whose synthesis failed.
func Placeholder(title string) string {
	return fmt.Sprintf("[Section unavailable: %s]", title)
}

// Synthesizer generates article sections.
type Synthesizer struct {
	gen       llm.Generator
	retriever search.Retriever
	ranker    rank.Ranker
	cfg       types.SynthesisConfig
	log       *zap.Logger
	metrics   *metrics.Collector
}

// New creates a Synthesizer. The retriever is optional: when set, a section
// whose ranked entries carry no evidence gets one live search instead.
func New(g llm.Generator, r search.Retriever, ranker rank.Ranker, cfg types.SynthesisConfig, log *zap.Logger, m *metrics.Collector) (*Synthesizer, error) {
	switch {
	case g == nil:
		return nil, &types.ConfigurationError{Field: "article", Detail: "generator is required"}
	case cfg.Workers < 1:
		return nil, &types.ConfigurationError{Field: "article.workers", Detail: fmt.Sprintf("must be >= 1, got %d", cfg.Workers)}
	case cfg.TopK < 0:
		return nil, &types.ConfigurationError{Field: "article.top_k", Detail: "must be >= 0"}
	}
	if ranker == nil {
		ranker = rank.Lexical{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{gen: g, retriever: r, ranker: ranker, cfg: cfg, log: log, metrics: m}, nil
}

// Generate writes one body per outline section. Section failures are
// retried once and then replaced by a placeholder; they never fail the
// call. Only cancellation and ranking index errors are returned.
func (s *Synthesizer) Generate(ctx context.Context, topic string, table *mindmap.Table, o types.Outline) (*types.Article, error) {
	start := time.Now()
	a := types.NewArticle(topic, o)

	var entries []mindmap.Entry
	if table != nil {
		entries = table.Entries()
	}
	index, err := s.ranker.Build(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("building %s index: %w", s.ranker.Name(), err)
	}
	defer index.Close()

	titles := o.Titles()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range a.Sections {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Each task owns a.Sections[i]; only the completion log is shared.
			s.writeSection(gctx, index, topic, titles, i, &a.Sections[i])
			mu.Lock()
			a.Completed = append(a.Completed, i)
			mu.Unlock()
			return nil
		})
	}
	// Tasks record failures in their results and always return nil.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, sec := range a.Sections {
		s.metrics.ObserveSection(string(sec.Status))
	}
	s.metrics.ObserveStage(string(types.StageArticle), time.Since(start))
	s.log.Info("article synthesized",
		zap.Int("sections", len(a.Sections)),
		zap.Int("placeholders", len(a.Failed())),
		zap.Ints("completion_order", a.Completed),
		zap.Duration("elapsed", time.Since(start)))
	return a, nil
}

func (s *Synthesizer) writeSection(ctx context.Context, index rank.Index, topic string, titles []string, i int, sec *types.ArticleSection) {
	query := sectionQuery(sec.Title, sec.Subsections)
	evidence := s.evidence(ctx, index, query)

	prompt, err := renderSectionPrompt(sectionPromptData{
		Topic:       topic,
		Title:       sec.Title,
		Subsections: sec.Subsections,
		Previous:    neighbor(titles, i-1),
		Next:        neighbor(titles, i+1),
		Evidence:    evidence,
	})
	if err != nil {
		s.fail(sec, err)
		return
	}

	for sec.Attempts < maxAttempts {
		if ctx.Err() != nil {
			s.fail(sec, ctx.Err())
			return
		}
		sec.Attempts++
		body, err := s.gen.Complete(ctx, prompt, llm.Options{MaxTokens: s.cfg.MaxTokens})
		if err == nil {
			body = cleanBody(body, sec.Title)
			if body == "" {
				err = fmt.Errorf("empty section body")
			}
		}
		if err != nil {
			sec.Error = err.Error()
			s.log.Warn("section synthesis failed",
				zap.String("section", sec.Title),
				zap.Int("attempt", sec.Attempts),
				zap.Error(err))
			continue
		}
		sec.Body = body
		sec.Error = ""
		sec.Status = types.StatusWritten
		if sec.Attempts > 1 {
			sec.Status = types.StatusRetried
		}
		return
	}
	s.fail(sec, nil)
}

func (s *Synthesizer) fail(sec *types.ArticleSection, err error) {
	if err != nil {
		sec.Error = err.Error()
	}
	sec.Body = Placeholder(sec.Title)
	sec.Status = types.StatusPlaceholder
	s.log.Warn("section replaced by placeholder", zap.String("section", sec.Title), zap.String("error", sec.Error))
}

// evidence returns the snippets of the top-ranked entries, falling back to
// a live search when none of them carry any.
func (s *Synthesizer) evidence(ctx context.Context, index rank.Index, query string) []evidenceItem {
	var items []evidenceItem
	if s.cfg.TopK > 0 {
		results, err := index.TopK(ctx, query, s.cfg.TopK)
		if err != nil {
			s.log.Warn("ranking failed", zap.String("query", query), zap.Error(err))
		}
		seen := make(map[string]bool)
		for _, r := range results {
			for _, sn := range r.Entry.Evidence {
				if seen[sn.Key()] {
					continue
				}
				seen[sn.Key()] = true
				items = append(items, evidenceItem{Concept: r.Entry.Concept, Snippet: sn})
			}
		}
	}
	if len(items) > 0 || s.retriever == nil || s.cfg.TopK == 0 {
		return items
	}

	snippets, err := s.retriever.Search(ctx, query, s.cfg.TopK)
	if err != nil {
		s.log.Warn("live section search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	for _, sn := range snippets {
		items = append(items, evidenceItem{Snippet: sn})
	}
	return items
}

// sectionQuery joins the section title with its subsection titles.
func sectionQuery(title string, subsections []string) string {
	return strings.Join(append([]string{title}, subsections...), " ")
}

func neighbor(titles []string, i int) string {
	if i < 0 || i >= len(titles) {
		return ""
	}
	return titles[i]
}

// cleanBody strips code fences and a leading heading that repeats the
// section title.
func cleanBody(body, title string) string {
	body = llm.StripFences(body)
	first, rest, _ := strings.Cut(body, "\n")
	if strings.HasPrefix(first, "#") &&
		types.NormalizeText(strings.TrimLeft(first, "# ")) == types.NormalizeText(title) {
		body = rest
	}
	return strings.TrimSpace(body)
}
