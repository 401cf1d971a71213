// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outline turns a mind map into an article outline: the map's
// root-to-leaf paths are given to the generator, and its response is parsed
// as Markdown headings or, failing that, as a YAML section list.
package outline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/internal/mindmap"
	"github.com/pdiddy/omnithink/pkg/types"
)

// Generator produces outlines with a language model.
type Generator struct {
	gen       llm.Generator
	maxTokens int
	log       *zap.Logger
	metrics   *metrics.Collector
}

// New creates a Generator. maxTokens of 0 uses the generator default.
func New(g llm.Generator, maxTokens int, log *zap.Logger, m *metrics.Collector) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{gen: g, maxTokens: maxTokens, log: log, metrics: m}
}

// Generate asks the model for an outline of topic grounded on mm and
// returns the parsed outline together with the raw response. An empty or
// unparsable response is a *types.StructuralError; generator failures are
// returned as they come. The stage is not retried here.
func (g *Generator) Generate(ctx context.Context, topic string, mm *mindmap.MindMap) (types.Outline, string, error) {
	start := time.Now()
	prompt, err := renderPrompt(topic, mm)
	if err != nil {
		return types.Outline{}, "", err
	}

	text, err := g.gen.Complete(ctx, prompt, llm.Options{MaxTokens: g.maxTokens})
	if err != nil {
		return types.Outline{}, "", fmt.Errorf("generating outline: %w", err)
	}

	o, err := Parse(text, topic)
	if err != nil {
		g.log.Warn("outline rejected", zap.String("response", clip(text, 200)), zap.Error(err))
		return types.Outline{}, text, err
	}

	g.metrics.ObserveStage(string(types.StageOutline), time.Since(start))
	g.log.Info("outline generated",
		zap.Int("sections", len(o.Sections)),
		zap.Strings("titles", o.Titles()))
	return o, text, nil
}

// Load reads an outline from a YAML file (`sections: [{title, subsections}]`)
// or a Markdown file of headings.
func Load(path, topic string) (types.Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Outline{}, fmt.Errorf("reading outline: %w", err)
	}
	return Parse(string(data), topic)
}

// Parse reads an outline from Markdown headings, falling back to YAML.
// A leading heading equal to the topic is treated as the document title:
// the level below it becomes the section level.
func Parse(text, topic string) (types.Outline, error) {
	text = llm.StripFences(text)
	if strings.TrimSpace(text) == "" {
		return types.Outline{}, &types.StructuralError{Stage: types.StageOutline, Detail: "empty outline"}
	}

	o := parseMarkdown(text, topic)
	if len(o.Sections) == 0 {
		o = parseYAML(text)
	}
	if len(o.Sections) == 0 {
		return types.Outline{}, &types.StructuralError{
			Stage:  types.StageOutline,
			Detail: fmt.Sprintf("no top-level sections in %q", clip(text, 80)),
		}
	}
	return o, nil
}

type heading struct {
	level int
	title string
}

func parseMarkdown(text, topic string) types.Outline {
	var hs []heading
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		level := 0
		for level < len(line) && line[level] == '#' {
			level++
		}
		if level == 0 || level == len(line) || line[level] != ' ' {
			continue
		}
		title := cleanTitle(line[level:])
		if title == "" {
			continue
		}
		hs = append(hs, heading{level: level, title: title})
	}

	if len(hs) > 1 && types.NormalizeText(hs[0].title) == types.NormalizeText(topic) {
		hs = hs[1:]
	}
	if len(hs) == 0 {
		return types.Outline{}
	}

	top := hs[0].level
	for _, h := range hs {
		top = min(top, h.level)
	}

	var o types.Outline
	for _, h := range hs {
		switch h.level {
		case top:
			o.Sections = append(o.Sections, types.OutlineSection{Title: h.title})
		case top + 1:
			if n := len(o.Sections); n > 0 {
				o.Sections[n-1].Subsections = append(o.Sections[n-1].Subsections, h.title)
			}
		}
	}
	return o
}

func parseYAML(text string) types.Outline {
	var o types.Outline
	if err := yaml.Unmarshal([]byte(text), &o); err != nil {
		return types.Outline{}
	}
	var kept []types.OutlineSection
	for _, s := range o.Sections {
		s.Title = cleanTitle(s.Title)
		if s.Title == "" {
			continue
		}
		var subs []string
		for _, sub := range s.Subsections {
			if sub = cleanTitle(sub); sub != "" {
				subs = append(subs, sub)
			}
		}
		s.Subsections = subs
		kept = append(kept, s)
	}
	return types.Outline{Sections: kept}
}

// cleanTitle strips emphasis markers, trailing hashes, and list numbering
// such as "1." or "2.3)".
func cleanTitle(s string) string {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "#"))
	i := 0
	for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.') {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == ' ' || s[i] == ')') && (s[i-1] == '.' || s[i] == ')') {
		s = strings.TrimLeft(s[i:], ") ")
	}
	return strings.Trim(s, "*_` ")
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
