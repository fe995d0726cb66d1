package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfiler_RecordOperation(t *testing.T) {
	p := New()
	p.RecordOperation("nms", 2*time.Millisecond)
	p.RecordOperation("nms", 4*time.Millisecond)
	p.RecordOperation("decode", time.Millisecond)

	s := p.Snapshot()
	require.Contains(t, s.Operations, "nms")
	assert.Equal(t, OperationStats{
		Count: 2,
		Total: 6 * time.Millisecond,
		Min:   2 * time.Millisecond,
		Max:   4 * time.Millisecond,
		Avg:   3 * time.Millisecond,
	}, s.Operations["nms"])
	assert.Equal(t, int64(1), s.Operations["decode"].Count)
}

func TestProfiler_RecordMetric(t *testing.T) {
	p := New()
	for _, v := range []float64{3, 1, 5} {
		p.RecordMetric("candidates", v)
	}

	assert.Equal(t, MetricStats{Count: 3, Sum: 9, Min: 1, Max: 5, Avg: 3}, p.Snapshot().Metrics["candidates"])

	p.Reset()
	assert.Empty(t, p.Snapshot().Metrics)
}

func TestProfiler_StartOperation(t *testing.T) {
	p := New()
	done := p.StartOperation("filter")
	done()
	assert.Equal(t, int64(1), p.Snapshot().Operations["filter"].Count)
}

func TestProfiler_Nil(t *testing.T) {
	var p *Profiler
	p.StartOperation("x")()
	p.RecordMetric("y", 1)
	p.Reset()
	assert.Equal(t, Snapshot{}, p.Snapshot())
}

func TestProfiler_Concurrent(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.RecordOperation("op", time.Microsecond)
				p.RecordMetric("m", 1)
			}
		}()
	}
	wg.Wait()

	s := p.Snapshot()
	assert.Equal(t, int64(1600), s.Operations["op"].Count)
	assert.Equal(t, float64(1600), s.Metrics["m"].Sum)
}

func TestProfiler_Report(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New()
	p.RecordOperation("nms", time.Millisecond)
	p.RecordOperation("decode", time.Millisecond)
	p.RecordMetric("kept", 2)

	p.Report(zap.New(core))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "decode", entries[0].ContextMap()["operation"])
	assert.Equal(t, "nms", entries[1].ContextMap()["operation"])
	assert.Equal(t, "kept", entries[2].ContextMap()["metric"])
}
