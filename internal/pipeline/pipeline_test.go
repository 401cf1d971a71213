// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/internal/mindmap"
	"github.com/pdiddy/omnithink/internal/search"
	"github.com/pdiddy/omnithink/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		goleak.IgnoreTopFunction("github.com/blevesearch/bleve/index.AnalysisWorker"),
	)
}

// --- fakes ---

func threeSnippets() search.Retriever {
	return search.RetrieverFunc(func(_ context.Context, q string, topK int) ([]types.Snippet, error) {
		var out []types.Snippet
		for i := 0; i < 3 && i < topK; i++ {
			out = append(out, types.Snippet{
				Text: fmt.Sprintf("%s evidence %d", q, i),
				URL:  fmt.Sprintf("https://example.org/%d/%s", i, strings.ReplaceAll(q, " ", "_")),
			})
		}
		return out, nil
	})
}

func timeoutRetriever() search.Retriever {
	return search.RetrieverFunc(func(context.Context, string, int) ([]types.Snippet, error) {
		return nil, &types.AdapterError{Adapter: types.AdapterRetriever, Backend: "fake", Err: context.DeadlineExceeded}
	})
}

func lineValue(prompt, prefix string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return v
		}
	}
	return ""
}

// scriptedGenerator answers each stage's prompt: two concepts per
// expansion, a fixed two-section outline, a body per section, and an echo
// of the draft when polishing.
type scriptedGenerator struct {
	mu         sync.Mutex
	outline    string
	sectionErr map[string]error
}

func (g *scriptedGenerator) Complete(_ context.Context, prompt string, _ llm.Options) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "You are building a mind map"):
		c := lineValue(prompt, "Current concept: ")
		b, _ := json.Marshal([]string{c + " part 1", c + " part 2"})
		return string(b), nil
	case strings.HasPrefix(prompt, "You are planning"):
		return g.outline, nil
	case strings.HasPrefix(prompt, "You are writing one section"):
		title := lineValue(prompt, "Section: ")
		g.mu.Lock()
		err := g.sectionErr[title]
		g.mu.Unlock()
		if err != nil {
			return "", err
		}
		return "Text about " + title + ".", nil
	case strings.HasPrefix(prompt, "You are editing"):
		_, draft, _ := strings.Cut(prompt, "Draft:\n")
		return draft, nil
	}
	return "", fmt.Errorf("unexpected prompt %q", prompt[:40])
}

func testConfig(t *testing.T) types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()
	cfg.MindMap.MaxDepth = 2
	cfg.MindMap.MaxChildren = 2
	cfg.MindMap.SnippetsPerNode = 3
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func recordTransitions(d *Driver) *[]State {
	var states []State
	d.OnTransition = func(tr Transition) {
		if len(states) == 0 {
			states = append(states, tr.From)
		}
		states = append(states, tr.To)
	}
	return &states
}

// --- scenarios ---

func TestRunRenewableEnergy(t *testing.T) {
	cfg := testConfig(t)
	m := metrics.NewCollector("test")
	gen := &scriptedGenerator{outline: "# Renewable Energy\n## Solar\n## Wind\n"}

	d, err := New(cfg, threeSnippets(), gen, nil, m)
	require.NoError(t, err)
	states := recordTransitions(d)

	res, err := d.Run(context.Background(), "Renewable Energy")
	require.NoError(t, err)

	assert.Equal(t, Done, d.State())
	assert.Equal(t, []State{Idle, BuildingMap, PreparingTable, GeneratingOutline, SynthesizingArticle, Polishing, Done}, *states)

	// 1 root + 2 at depth 1 + 4 at depth 2.
	assert.Equal(t, 7, res.MindMap.Len())
	assert.Equal(t, 2, res.MindMap.Depth())
	assert.Len(t, res.MindMap.Layer(1), 2)
	assert.Len(t, res.MindMap.Layer(2), 4)
	assert.Equal(t, 7, res.Table.Len())
	res.MindMap.Walk(func(n mindmap.Node) bool {
		assert.NotEmpty(t, n.Evidence, "node %s has evidence", n.Text)
		return true
	})

	assert.Equal(t, []string{"Solar", "Wind"}, res.Outline.Titles())
	assert.Empty(t, res.Article.Failed())

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Renewable_Energy.md"))
	require.NoError(t, err)
	assert.Equal(t, res.ArtifactPath, filepath.Join(cfg.Output.Dir, "Renewable_Energy.md"))
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "# Renewable Energy\n\n"), text)
	assert.Contains(t, text, "## Solar\n\nText about Solar.")
	assert.Contains(t, text, "## Wind\n\nText about Wind.")
	assert.True(t, strings.HasSuffix(text, ".\n"))

	export, err := os.ReadFile(res.MindMapPath)
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(export, &tree))
	assert.Contains(t, tree, "info")
	assert.Contains(t, tree, "children")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(string(Done))))
	assert.NotEmpty(t, res.RunID)
}

func TestRunEmptyOutlineFails(t *testing.T) {
	cfg := testConfig(t)
	m := metrics.NewCollector("test")
	gen := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) { return "", nil })

	d, err := New(cfg, threeSnippets(), gen, nil, m)
	require.NoError(t, err)
	var failure Transition
	d.OnTransition = func(tr Transition) {
		if tr.To == Failed {
			failure = tr
		}
	}

	res, err := d.Run(context.Background(), "Renewable Energy")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, Failed, d.State())
	assert.Equal(t, GeneratingOutline, failure.From)

	var stageErr *types.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, types.StageOutline, stageErr.Stage)
	var structErr *types.StructuralError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, types.StageOutline, structErr.Stage)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact on failure")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(string(Failed))))
}

func TestRunRetrieverTimeouts(t *testing.T) {
	cfg := testConfig(t)
	gen := &scriptedGenerator{outline: "# Overview\n# Outlook\n"}

	d, err := New(cfg, timeoutRetriever(), gen, nil, nil)
	require.NoError(t, err)

	res, err := d.Run(context.Background(), "Renewable Energy")
	require.NoError(t, err)

	res.MindMap.Walk(func(n mindmap.Node) bool {
		assert.Empty(t, n.Evidence)
		return true
	})
	for _, e := range res.Table.Entries() {
		assert.Empty(t, e.Evidence)
	}
	assert.NotEmpty(t, res.Warnings)
	assert.Empty(t, res.Article.Failed())

	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Renewable Energy\n\n## Overview"))
}

func TestRunPlaceholderPolicy(t *testing.T) {
	quota := &types.AdapterError{Adapter: types.AdapterGenerator, Backend: "fake", Err: errors.New("quota")}

	t.Run("proceeds by default", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.MindMap.MaxDepth = 1
		gen := &scriptedGenerator{outline: "# Solar\n# Wind\n", sectionErr: map[string]error{"Wind": quota}}
		d, err := New(cfg, threeSnippets(), gen, nil, nil)
		require.NoError(t, err)

		res, err := d.Run(context.Background(), "Renewable Energy")
		require.NoError(t, err)
		assert.Equal(t, []int{1}, res.Article.Failed())

		data, err := os.ReadFile(res.ArtifactPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "## Solar\n\nText about Solar.")
		assert.Contains(t, string(data), "[Section unavailable: Wind]")
	})

	t.Run("fails when configured", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.MindMap.MaxDepth = 1
		cfg.Synthesis.FailOnPlaceholder = true
		gen := &scriptedGenerator{outline: "# Solar\n# Wind\n", sectionErr: map[string]error{"Wind": quota}}
		d, err := New(cfg, threeSnippets(), gen, nil, nil)
		require.NoError(t, err)

		_, err = d.Run(context.Background(), "Renewable Energy")
		var stageErr *types.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, types.StageArticle, stageErr.Stage)
		assert.Contains(t, err.Error(), "Wind")
		_, statErr := os.Stat(ArticlePath(cfg.Output.Dir, "Renewable Energy"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestRunFixedOutline(t *testing.T) {
	cfg := testConfig(t)
	cfg.MindMap.MaxDepth = 0
	gen := &scriptedGenerator{outline: "unused"}
	d, err := New(cfg, threeSnippets(), gen, nil, nil)
	require.NoError(t, err)
	d.Outline = &types.Outline{Sections: []types.OutlineSection{{Title: "History"}}}

	res, err := d.Run(context.Background(), "Tidal Power")
	require.NoError(t, err)
	assert.Equal(t, []string{"History"}, res.Outline.Titles())
	assert.Equal(t, 1, res.MindMap.Len())
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "Tidal_Power.md"), res.ArtifactPath)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := New(cfg, threeSnippets(), &scriptedGenerator{outline: "# A\n"}, nil, nil)
	require.NoError(t, err)
	_, err = d.Run(ctx, "Renewable Energy")

	var stageErr *types.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, types.StageMindMap, stageErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, d.State())
}

func TestRunEmptyTopic(t *testing.T) {
	d, err := New(testConfig(t), threeSnippets(), &scriptedGenerator{}, nil, nil)
	require.NoError(t, err)
	_, err = d.Run(context.Background(), "   ")

	var stageErr *types.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, types.StageConfig, stageErr.Stage)
	var cfgErr *types.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MindMap.Workers = 0
	_, err := New(cfg, threeSnippets(), &scriptedGenerator{}, nil, nil)
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mindmap.workers", cfgErr.Field)

	cfg = testConfig(t)
	cfg.Synthesis.Ranker = "neural"
	_, err = New(cfg, threeSnippets(), &scriptedGenerator{}, nil, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "article.ranker", cfgErr.Field)
}
