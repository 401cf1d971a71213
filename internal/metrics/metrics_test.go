// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveCall("retriever", "serper", OutcomeSuccess, time.Second)
	c.ObserveLayer(1, 2, 0)
	c.ObserveSection("written")
	c.ObserveStage("outline", time.Second)
	c.ObserveRun("done")
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("omnithink")
	c.ObserveCall("retriever", "serper", OutcomeSuccess, 10*time.Millisecond)
	c.ObserveCall("retriever", "serper", OutcomeTimeout, 10*time.Millisecond)
	c.ObserveCall("generator", "claude", OutcomeSuccess, 10*time.Millisecond)
	c.ObserveLayer(1, 3, 1)
	c.ObserveSection("written")
	c.ObserveSection("written")
	c.ObserveSection("placeholder")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.AdapterCalls.WithLabelValues("retriever", "serper", OutcomeTimeout)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.LayerNodes.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DedupMerges))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Sections.WithLabelValues("written")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("omnithink")
	b := NewCollector("omnithink")
	a.ObserveRun("done")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Runs.WithLabelValues("done")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Runs.WithLabelValues("done")))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector("omnithink")
	c.ObserveRun("failed")

	path := filepath.Join(t.TempDir(), "omnithink.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `omnithink_runs_total{state="failed"} 1`), string(data))
}
