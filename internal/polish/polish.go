// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package polish revises the article draft as a whole while keeping its
// section structure.
package polish

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/pkg/types"
)

var promptTmpl = template.Must(template.New("polish").Parse(`You are editing an article about "{{.Topic}}". Revise the draft below into a coherent whole:
- remove statements repeated across sections,
- smooth the transitions between sections,
- keep citations such as [3] attached to the claims they support.
{{if .TargetWords}}Aim for about {{.TargetWords}} words in total.{{else}}Keep roughly the current length.{{end}}

Keep exactly these {{len .Titles}} sections, in this order, each introduced by a "## " heading with the same title:
{{range .Titles}}## {{.}}
{{end}}
Return only the revised article, starting with the first "## " heading.

Draft:
{{.Draft}}
`))

type promptData struct {
	Topic       string
	Titles      []string
	TargetWords int
	Draft       string
}

// Polisher revises drafts with a language model.
type Polisher struct {
	gen     llm.Generator
	cfg     types.PolishConfig
	log     *zap.Logger
	metrics *metrics.Collector
}

// New creates a Polisher.
func New(g llm.Generator, cfg types.PolishConfig, log *zap.Logger, m *metrics.Collector) (*Polisher, error) {
	if g == nil {
		return nil, &types.ConfigurationError{Field: "polish", Detail: "generator is required"}
	}
	if cfg.Passes < 1 || cfg.Passes > 3 {
		return nil, &types.ConfigurationError{Field: "polish.passes", Detail: fmt.Sprintf("must be between 1 and 3, got %d", cfg.Passes)}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Polisher{gen: g, cfg: cfg, log: log, metrics: m}, nil
}

// Polish runs the configured number of revision passes over the article
// draft and returns the polished body as "## Title" blocks. A response that
// cannot be mapped back onto the article's sections is a
// *types.StructuralError.
func (p *Polisher) Polish(ctx context.Context, topic string, a *types.Article) (string, error) {
	start := time.Now()
	titles := make([]string, len(a.Sections))
	for i, s := range a.Sections {
		titles[i] = s.Title
	}
	draft := a.Draft()

	for pass := 1; pass <= p.cfg.Passes; pass++ {
		prompt, err := llm.Render(promptTmpl, promptData{
			Topic:       topic,
			Titles:      titles,
			TargetWords: p.cfg.TargetWords,
			Draft:       draft,
		})
		if err != nil {
			return "", err
		}

		response, err := p.gen.Complete(ctx, prompt, llm.Options{MaxTokens: p.cfg.MaxTokens})
		if err != nil {
			return "", fmt.Errorf("polishing pass %d: %w", pass, err)
		}

		bodies, err := Split(response, titles)
		if err != nil {
			return "", err
		}
		draft = Join(titles, bodies)
		p.log.Info("polish pass complete",
			zap.Int("pass", pass),
			zap.Int("words_before", wordCount(a.Draft())),
			zap.Int("words_after", wordCount(draft)))
	}

	p.metrics.ObserveStage(string(types.StagePolish), time.Since(start))
	return draft, nil
}

// Split maps a revised document back onto titles by its "## " headings and
// returns one body per title. The heading count must equal len(titles) and
// the headings must match titles in order after normalization. Text before
// the first heading is dropped.
func Split(doc string, titles []string) ([]string, error) {
	doc = llm.StripFences(doc)
	if strings.TrimSpace(doc) == "" {
		return nil, &types.StructuralError{Stage: types.StagePolish, Detail: "empty response"}
	}

	var (
		headings []string
		bodies   []string
		cur      *strings.Builder
	)
	for _, line := range strings.Split(doc, "\n") {
		if h, ok := strings.CutPrefix(strings.TrimRight(line, " \t"), "## "); ok {
			headings = append(headings, strings.TrimSpace(h))
			bodies = append(bodies, "")
			cur = &strings.Builder{}
			continue
		}
		if cur == nil {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		bodies[len(bodies)-1] = cur.String()
	}

	if len(headings) != len(titles) {
		return nil, &types.StructuralError{
			Stage:  types.StagePolish,
			Detail: fmt.Sprintf("got %d sections, want %d", len(headings), len(titles)),
		}
	}
	for i, h := range headings {
		if types.NormalizeText(h) != types.NormalizeText(titles[i]) {
			return nil, &types.StructuralError{
				Stage:  types.StagePolish,
				Detail: fmt.Sprintf("section %d is %q, want %q", i+1, h, titles[i]),
			}
		}
		bodies[i] = strings.TrimSpace(bodies[i])
	}
	return bodies, nil
}

// Join renders sections as "## Title" blocks separated by blank lines.
func Join(titles, bodies []string) string {
	var b strings.Builder
	for i, t := range titles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", t, bodies[i])
	}
	return b.String()
}

func wordCount(s string) int { return len(strings.Fields(s)) }
