// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mindmap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/internal/search"
	"github.com/pdiddy/omnithink/pkg/types"
)

// Layer is the result of one growth step: the nodes created at Depth.
// An empty layer is the terminal marker.
type Layer struct {
	Depth int
	Nodes []Node

	// Merged counts candidates collapsed into another node of the layer.
	Merged int

	// Dropped counts candidates that repeated an existing concept.
	Dropped int

	// Warnings records the recovered retrieval and generation failures.
	Warnings []string
}

// Done reports whether the layer is the terminal marker.
func (l Layer) Done() bool { return len(l.Nodes) == 0 }

// Builder grows a MindMap lazily, one layer per NextLayer call.
type Builder struct {
	mm        *MindMap
	retriever search.Retriever
	generator llm.Generator
	cfg       types.MindMapConfig
	log       *zap.Logger
	metrics   *metrics.Collector

	depth int
	done  bool
}

// NewBuilder creates a Builder whose map holds only the root for topic.
func NewBuilder(topic string, r search.Retriever, g llm.Generator, cfg types.MindMapConfig, log *zap.Logger, m *metrics.Collector) (*Builder, error) {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return nil, &types.ConfigurationError{Field: "topic", Detail: "must not be empty"}
	case cfg.MaxDepth < 0:
		return nil, &types.ConfigurationError{Field: "mindmap.max_depth", Detail: fmt.Sprintf("must be >= 0, got %d", cfg.MaxDepth)}
	case cfg.MaxChildren < 1:
		return nil, &types.ConfigurationError{Field: "mindmap.max_children", Detail: fmt.Sprintf("must be >= 1, got %d", cfg.MaxChildren)}
	case cfg.Workers < 1:
		return nil, &types.ConfigurationError{Field: "mindmap.workers", Detail: fmt.Sprintf("must be >= 1, got %d", cfg.Workers)}
	case cfg.DedupThreshold <= 0 || cfg.DedupThreshold > 1:
		return nil, &types.ConfigurationError{Field: "mindmap.dedup_threshold", Detail: fmt.Sprintf("must be in (0,1], got %g", cfg.DedupThreshold)}
	case r == nil || g == nil:
		return nil, &types.ConfigurationError{Field: "mindmap", Detail: "retriever and generator are required"}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		mm:        New(topic, cfg.MaxDepth),
		retriever: r,
		generator: g,
		cfg:       cfg,
		log:       log,
		metrics:   m,
	}, nil
}

// MindMap returns the map being grown. It is valid after any number of
// NextLayer calls.
func (b *Builder) MindMap() *MindMap { return b.mm }

// Build drains every layer and returns the non-terminal ones.
func (b *Builder) Build(ctx context.Context) ([]Layer, error) {
	var layers []Layer
	for {
		layer, err := b.NextLayer(ctx)
		if err != nil {
			return layers, err
		}
		if layer.Done() {
			return layers, nil
		}
		layers = append(layers, layer)
	}
}

// expansion is the outcome of expanding one parent node.
type expansion struct {
	snippets   []types.Snippet
	candidates []candidate
	searched   bool
	warning    string
}

// NextLayer grows the next layer and returns it once every parent of the
// previous layer has been expanded. It returns the terminal empty layer
// when the depth bound is reached or the previous layer produced nothing.
// Only cancellation of ctx is an error; adapter failures are recorded as
// warnings.
func (b *Builder) NextLayer(ctx context.Context) (Layer, error) {
	if b.done {
		return Layer{Depth: b.depth + 1}, nil
	}
	if err := ctx.Err(); err != nil {
		return Layer{}, err
	}
	if b.depth >= b.cfg.MaxDepth {
		b.done = true
		warnings, err := b.searchLeaves(ctx, b.mm.layers[b.depth])
		return Layer{Depth: b.depth + 1, Warnings: warnings}, err
	}

	start := time.Now()
	d := b.depth + 1
	parents := b.mm.layers[d-1]
	existing := b.mm.Concepts()

	results := make([]expansion, len(parents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, id := range parents {
		if gctx.Err() != nil {
			break
		}
		parent := b.mm.nodes[id].clone()
		g.Go(func() error {
			results[i] = b.expand(gctx, parent, existing)
			return nil
		})
	}
	// Tasks record failures in their results and always return nil.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Layer{}, err
	}

	// Barrier passed: attach evidence and dedup over the whole layer.
	layer := Layer{Depth: d}
	var candidates []candidate
	for i, exp := range results {
		parent := b.mm.nodes[parents[i]]
		if exp.searched {
			parent.Evidence = types.MergeSnippets(parent.Evidence, exp.snippets)
			parent.searched = true
		}
		if exp.warning != "" {
			layer.Warnings = append(layer.Warnings, exp.warning)
		}
		candidates = append(candidates, exp.candidates...)
	}

	res := dedupLayer(candidates, existing, b.cfg.DedupThreshold)
	layer.Merged, layer.Dropped = res.merged, res.dropped
	for _, s := range res.survivors {
		n := b.mm.addNode(s.text, d, s.parent)
		n.Evidence = s.evidence
		n.SecondaryParents = s.secondary
		for _, p := range s.secondary {
			ref := b.mm.nodes[p]
			ref.References = append(ref.References, n.ID)
		}
	}
	b.depth = d

	if len(res.survivors) == 0 {
		b.done = true
		b.log.Info("mind map growth stopped: empty layer", zap.Int("depth", d), zap.Int("warnings", len(layer.Warnings)))
		return layer, nil
	}

	if d == b.cfg.MaxDepth {
		b.done = true
		warnings, err := b.searchLeaves(ctx, b.mm.layers[d])
		layer.Warnings = append(layer.Warnings, warnings...)
		if err != nil {
			return Layer{}, err
		}
	}

	layer.Nodes = b.mm.Layer(d)
	b.metrics.ObserveLayer(d, len(layer.Nodes), layer.Merged)
	b.log.Info("mind map layer built",
		zap.Int("depth", d),
		zap.Int("parents", len(parents)),
		zap.Int("nodes", len(layer.Nodes)),
		zap.Int("merged", layer.Merged),
		zap.Int("dropped", layer.Dropped),
		zap.Int("warnings", len(layer.Warnings)),
		zap.Duration("elapsed", time.Since(start)))
	return layer, nil
}

// expand retrieves evidence for parent and asks the generator for child
// concepts. It never fails: problems become the expansion's warning.
func (b *Builder) expand(ctx context.Context, parent Node, existing []string) expansion {
	var exp expansion
	path := b.mm.Path(parent.ID)

	if b.cfg.SnippetsPerNode > 0 && !parent.searched {
		snippets, err := b.retriever.Search(ctx, b.query(path), b.cfg.SnippetsPerNode)
		if err != nil {
			exp.warning = fmt.Sprintf("retrieval for %q: %v", parent.Text, err)
			b.log.Warn("retrieval failed, node not expanded", zap.String("node", parent.ID), zap.String("concept", parent.Text), zap.Error(err))
			return exp
		}
		exp.snippets = snippets
		exp.searched = true
	}
	evidence := types.MergeSnippets(parent.Evidence, exp.snippets)

	prompt, err := renderExpandPrompt(expandPromptData{
		Topic:       b.mm.Topic(),
		Concept:     parent.Text,
		Path:        path,
		Snippets:    evidence,
		Existing:    existing,
		MaxChildren: b.cfg.MaxChildren,
	})
	if err != nil {
		exp.warning = fmt.Sprintf("prompt for %q: %v", parent.Text, err)
		return exp
	}

	response, err := b.generator.Complete(ctx, prompt, llm.Options{})
	if err != nil {
		exp.warning = fmt.Sprintf("generation for %q: %v", parent.Text, err)
		b.log.Warn("generation failed, node not expanded", zap.String("node", parent.ID), zap.String("concept", parent.Text), zap.Error(err))
		return exp
	}

	names, ok := parseConcepts(response, b.cfg.MaxChildren)
	if !ok {
		exp.warning = fmt.Sprintf("unparsable concepts for %q", parent.Text)
		b.log.Warn("could not parse concepts", zap.String("node", parent.ID), zap.String("response", clip(response, 200)))
	}
	for _, name := range names {
		key := types.NormalizeText(name)
		exp.candidates = append(exp.candidates, candidate{
			text:     name,
			key:      key,
			parent:   parent.ID,
			evidence: mentioning(evidence, key),
		})
	}
	return exp
}

// searchLeaves retrieves evidence for nodes that were never expanded.
func (b *Builder) searchLeaves(ctx context.Context, ids []string) ([]string, error) {
	if !b.cfg.SearchLeaves || b.cfg.SnippetsPerNode <= 0 {
		return nil, nil
	}

	var pending []string
	for _, id := range ids {
		if !b.mm.nodes[id].searched {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	type leafResult struct {
		snippets []types.Snippet
		err      error
	}
	results := make([]leafResult, len(pending))
	queries := make([]string, len(pending))
	for i, id := range pending {
		queries[i] = b.query(b.mm.Path(id))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			snippets, err := b.retriever.Search(gctx, queries[i], b.cfg.SnippetsPerNode)
			results[i] = leafResult{snippets: snippets, err: err}
			return nil
		})
	}
	// Tasks record failures in their results and always return nil.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warnings []string
	for i, id := range pending {
		n := b.mm.nodes[id]
		if results[i].err != nil {
			warnings = append(warnings, fmt.Sprintf("retrieval for %q: %v", n.Text, results[i].err))
			b.log.Warn("leaf retrieval failed", zap.String("node", id), zap.String("concept", n.Text), zap.Error(results[i].err))
			continue
		}
		n.Evidence = types.MergeSnippets(n.Evidence, results[i].snippets)
		n.searched = true
	}
	return warnings, nil
}

// query builds the search query for the node at the end of path.
func (b *Builder) query(path []string) string {
	if !b.cfg.AncestorContext || len(path) <= 1 {
		return path[len(path)-1]
	}
	return strings.Join(path, " ")
}

// mentioning returns the snippets whose text contains every token of the
// normalized concept key.
func mentioning(snippets []types.Snippet, key string) []types.Snippet {
	tokens := strings.Fields(key)
	if len(tokens) == 0 {
		return nil
	}
	var out []types.Snippet
	for _, s := range snippets {
		text := " " + types.NormalizeText(s.Title+" "+s.Text) + " "
		all := true
		for _, t := range tokens {
			if !strings.Contains(text, " "+t+" ") {
				all = false
				break
			}
		}
		if all {
			out = append(out, s)
		}
	}
	return out
}
