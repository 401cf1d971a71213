// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics collects run metrics for the pipeline on a private
// Prometheus registry. A nil *Collector is valid and records nothing, so
// components can take one optionally.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded by ObserveCall.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Collector holds the Prometheus metrics for one process.
type Collector struct {
	registry *prometheus.Registry

	AdapterCalls   *prometheus.CounterVec
	AdapterLatency *prometheus.HistogramVec
	LayerNodes     *prometheus.GaugeVec
	DedupMerges    prometheus.Counter
	Sections       *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
}

// NewCollector creates a collector whose metrics are registered on a fresh
// registry under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		AdapterCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_calls_total",
				Help:      "External adapter calls by adapter, backend and outcome",
			},
			[]string{"adapter", "backend", "outcome"},
		),
		AdapterLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "adapter_call_duration_seconds",
				Help:      "Latency of external adapter calls",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"adapter"},
		),
		LayerNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mindmap_layer_nodes",
				Help:      "Concept nodes created per mind map depth",
			},
			[]string{"depth"},
		),
		DedupMerges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mindmap_dedup_merges_total",
				Help:      "Candidate concepts collapsed into an existing node of the same layer",
			},
		),
		Sections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "article_sections_total",
				Help:      "Synthesized article sections by final status",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time spent in each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
			},
			[]string{"stage"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by terminal state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(
		c.AdapterCalls,
		c.AdapterLatency,
		c.LayerNodes,
		c.DedupMerges,
		c.Sections,
		c.StageDuration,
		c.Runs,
	)
	return c
}

// Registry returns the registry the collector's metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveCall records one adapter call.
func (c *Collector) ObserveCall(adapter, backend, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.AdapterCalls.WithLabelValues(adapter, backend, outcome).Inc()
	c.AdapterLatency.WithLabelValues(adapter).Observe(d.Seconds())
}

// ObserveLayer records the size of a completed mind map layer.
func (c *Collector) ObserveLayer(depth, nodes, merges int) {
	if c == nil {
		return
	}
	c.LayerNodes.WithLabelValues(fmt.Sprintf("%d", depth)).Set(float64(nodes))
	c.DedupMerges.Add(float64(merges))
}

// ObserveSection records the final status of one article section.
func (c *Collector) ObserveSection(status string) {
	if c == nil {
		return
	}
	c.Sections.WithLabelValues(status).Inc()
}

// ObserveStage records the duration of a pipeline stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records a pipeline run's terminal state.
func (c *Collector) ObserveRun(state string) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(state).Inc()
}

// WriteTextfile writes the registry in the Prometheus text exposition
// format, suitable for the node exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
