// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a generation run through its stages: mind map,
// retrieval table, outline, article synthesis, polishing, and the final
// artifact write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/omnithink/internal/article"
	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/internal/mindmap"
	"github.com/pdiddy/omnithink/internal/outline"
	"github.com/pdiddy/omnithink/internal/polish"
	"github.com/pdiddy/omnithink/internal/rank"
	"github.com/pdiddy/omnithink/internal/search"
	"github.com/pdiddy/omnithink/pkg/types"
)

// State is a pipeline state.
type State string

const (
	Idle                State = "idle"
	BuildingMap         State = "building_map"
	PreparingTable      State = "preparing_table"
	GeneratingOutline   State = "generating_outline"
	SynthesizingArticle State = "synthesizing_article"
	Polishing           State = "polishing"
	Done                State = "done"
	Failed              State = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool { return s == Done || s == Failed }

// Transition is one state change of a run.
type Transition struct {
	RunID string
	From  State
	To    State
	Err   error
}

// Result is the outcome of a successful run.
type Result struct {
	RunID   string
	Topic   string
	MindMap *mindmap.MindMap
	Layers  []mindmap.Layer
	Table   *mindmap.Table
	Outline types.Outline
	Article *types.Article

	// Body is the polished article without the topic heading.
	Body string

	ArtifactPath string
	MindMapPath  string
	Warnings     []string
	Elapsed      time.Duration
}

// Driver runs the pipeline. A Driver runs one topic at a time.
type Driver struct {
	cfg       types.PipelineConfig
	retriever search.Retriever
	generator llm.Generator
	ranker    rank.Ranker
	log       *zap.Logger
	metrics   *metrics.Collector

	// OnTransition, when set, is called synchronously on every state change.
	OnTransition func(Transition)

	// Outline, when set, replaces outline generation.
	Outline *types.Outline

	mu      sync.Mutex
	state   State
	running bool
	runID   string
}

// New validates cfg and creates a Driver around the two adapters.
func New(cfg types.PipelineConfig, r search.Retriever, g llm.Generator, log *zap.Logger, m *metrics.Collector) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil || g == nil {
		return nil, &types.ConfigurationError{Field: "pipeline", Detail: "retriever and generator are required"}
	}
	ranker, err := rank.New(cfg.Synthesis.Ranker)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg:       cfg,
		retriever: r,
		generator: g,
		ranker:    ranker,
		log:       log,
		metrics:   m,
		state:     Idle,
	}, nil
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Run generates the article for topic and writes it to the output
// directory. On failure the state is Failed, the error is a
// *types.StageError, and no article file is written.
func (d *Driver) Run(ctx context.Context, topic string) (*Result, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil, errors.New("pipeline: run already in progress")
	}
	d.running = true
	d.state = Idle
	d.runID = uuid.NewString()
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	start := time.Now()
	res := &Result{RunID: d.runID, Topic: strings.TrimSpace(topic)}
	log := d.log.With(zap.String("run_id", res.RunID), zap.String("topic", res.Topic))
	log.Info("run started")

	if res.Topic == "" {
		return nil, d.fail(log, types.StageConfig, &types.ConfigurationError{Field: "topic", Detail: "must not be empty"})
	}

	// Mind map.
	d.transition(log, BuildingMap, nil)
	stageStart := time.Now()
	b, err := mindmap.NewBuilder(res.Topic, d.retriever, d.generator, d.cfg.MindMap, log, d.metrics)
	if err != nil {
		return nil, d.fail(log, types.StageMindMap, err)
	}
	for {
		layer, err := b.NextLayer(ctx)
		if err != nil {
			return nil, d.fail(log, types.StageMindMap, err)
		}
		res.Warnings = append(res.Warnings, layer.Warnings...)
		if layer.Done() {
			break
		}
		res.Layers = append(res.Layers, layer)
	}
	res.MindMap = b.MindMap()
	d.metrics.ObserveStage(string(types.StageMindMap), time.Since(stageStart))

	// Retrieval table.
	d.transition(log, PreparingTable, nil)
	stageStart = time.Now()
	res.Table = res.MindMap.PrepareTableForRetrieval()
	d.metrics.ObserveStage(string(types.StageTable), time.Since(stageStart))
	log.Info("retrieval table prepared",
		zap.Int("entries", res.Table.Len()),
		zap.Int("snippets", res.Table.SnippetCount()))

	// Outline.
	d.transition(log, GeneratingOutline, nil)
	if d.Outline != nil {
		res.Outline = *d.Outline
	} else {
		res.Outline, _, err = outline.New(d.generator, d.cfg.Generator.MaxTokens, log, d.metrics).Generate(ctx, res.Topic, res.MindMap)
		if err != nil {
			return nil, d.fail(log, types.StageOutline, err)
		}
	}
	if len(res.Outline.Sections) == 0 {
		return nil, d.fail(log, types.StageOutline, &types.StructuralError{Stage: types.StageOutline, Detail: "outline has no sections"})
	}

	// Article.
	d.transition(log, SynthesizingArticle, nil)
	synth, err := article.New(d.generator, d.retriever, d.ranker, d.cfg.Synthesis, log, d.metrics)
	if err != nil {
		return nil, d.fail(log, types.StageArticle, err)
	}
	res.Article, err = synth.Generate(ctx, res.Topic, res.Table, res.Outline)
	if err != nil {
		return nil, d.fail(log, types.StageArticle, err)
	}
	if failed := res.Article.Failed(); len(failed) > 0 {
		titles := make([]string, len(failed))
		for i, idx := range failed {
			titles[i] = res.Article.Sections[idx].Title
		}
		if d.cfg.Synthesis.FailOnPlaceholder {
			return nil, d.fail(log, types.StageArticle, fmt.Errorf("%d sections unavailable: %s", len(failed), strings.Join(titles, ", ")))
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("sections replaced by placeholders: %s", strings.Join(titles, ", ")))
	}

	// Polish.
	d.transition(log, Polishing, nil)
	p, err := polish.New(d.generator, d.cfg.Polish, log, d.metrics)
	if err != nil {
		return nil, d.fail(log, types.StagePolish, err)
	}
	res.Body, err = p.Polish(ctx, res.Topic, res.Article)
	if err != nil {
		return nil, d.fail(log, types.StagePolish, err)
	}

	// Artifact.
	stageStart = time.Now()
	res.ArtifactPath, err = WriteArticle(d.cfg.Output.Dir, res.Topic, res.Body)
	if err != nil {
		return nil, d.fail(log, types.StageOutput, err)
	}
	if d.cfg.Output.ExportMindMap {
		res.MindMapPath, err = WriteMindMap(d.cfg.Output.Dir, res.MindMap)
		if err != nil {
			log.Warn("mind map export failed", zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("mind map export: %v", err))
		}
	}
	d.metrics.ObserveStage(string(types.StageOutput), time.Since(stageStart))

	d.transition(log, Done, nil)
	d.metrics.ObserveRun(string(Done))
	res.Elapsed = time.Since(start)
	log.Info("run complete",
		zap.String("artifact", res.ArtifactPath),
		zap.Int("nodes", res.MindMap.Len()),
		zap.Int("sections", len(res.Article.Sections)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (d *Driver) transition(log *zap.Logger, to State, err error) {
	d.mu.Lock()
	from := d.state
	d.state = to
	runID := d.runID
	d.mu.Unlock()

	if err != nil {
		log.Error("pipeline transition", zap.String("from", string(from)), zap.String("to", string(to)), zap.Error(err))
	} else {
		log.Info("pipeline transition", zap.String("from", string(from)), zap.String("to", string(to)))
	}
	if d.OnTransition != nil {
		d.OnTransition(Transition{RunID: runID, From: from, To: to, Err: err})
	}
}

func (d *Driver) fail(log *zap.Logger, stage types.Stage, err error) error {
	serr := &types.StageError{Stage: stage, Err: err}
	d.transition(log, Failed, serr)
	d.metrics.ObserveRun(string(Failed))
	return serr
}
