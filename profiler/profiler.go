// Package profiler - Per-stage timing and metric tracking for post-processing.
package profiler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OperationStats summarises the recorded durations of one operation.
type OperationStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// MetricStats summarises the recorded values of one metric.
type MetricStats struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// Snapshot is a point-in-time copy of everything a Profiler recorded.
type Snapshot struct {
	Uptime     time.Duration             `json:"uptime"`
	Operations map[string]OperationStats `json:"operations"`
	Metrics    map[string]MetricStats    `json:"metrics"`
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// metricTracker tracks statistics for a custom metric.
type metricTracker struct {
	sum   float64
	min   float64
	max   float64
	count int64
}

// Profiler accumulates operation timings and metric values. It is safe for
// concurrent use; a nil *Profiler records nothing.
type Profiler struct {
	mu             sync.Mutex
	startTime      time.Time
	operationTimes map[string]*timeTracker
	customMetrics  map[string]*metricTracker
}

// New creates an empty profiler.
func New() *Profiler {
	return &Profiler{
		startTime:      time.Now(),
		operationTimes: make(map[string]*timeTracker),
		customMetrics:  make(map[string]*metricTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): Call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.RecordOperation(name, time.Since(start))
	}
}

// RecordOperation records the completion time of an operation.
func (p *Profiler) RecordOperation(name string, duration time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.operationTimes[name]
	if !ok {
		tracker = &timeTracker{minTime: duration, maxTime: duration}
		p.operationTimes[name] = tracker
	}
	tracker.totalTime += duration
	tracker.count++
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

// RecordMetric records a custom metric value.
func (p *Profiler) RecordMetric(name string, value float64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.customMetrics[name]
	if !ok {
		tracker = &metricTracker{min: value, max: value}
		p.customMetrics[name] = tracker
	}
	tracker.sum += value
	tracker.count++
	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// Reset discards everything recorded so far.
func (p *Profiler) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.operationTimes = make(map[string]*timeTracker)
	p.customMetrics = make(map[string]*metricTracker)
}

// Snapshot returns a copy of the current statistics.
func (p *Profiler) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Uptime:     time.Since(p.startTime),
		Operations: make(map[string]OperationStats, len(p.operationTimes)),
		Metrics:    make(map[string]MetricStats, len(p.customMetrics)),
	}
	for name, t := range p.operationTimes {
		s.Operations[name] = OperationStats{
			Count: t.count,
			Total: t.totalTime,
			Min:   t.minTime,
			Max:   t.maxTime,
			Avg:   t.totalTime / time.Duration(t.count),
		}
	}
	for name, m := range p.customMetrics {
		s.Metrics[name] = MetricStats{
			Count: m.count,
			Sum:   m.sum,
			Min:   m.min,
			Max:   m.max,
			Avg:   m.sum / float64(m.count),
		}
	}
	return s
}

// Report logs one line per operation and metric, sorted by name.
func (p *Profiler) Report(log *zap.Logger) {
	s := p.Snapshot()

	names := make([]string, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		op := s.Operations[name]
		log.Info("operation timing",
			zap.String("operation", name),
			zap.Int64("count", op.Count),
			zap.Duration("avg", op.Avg),
			zap.Duration("min", op.Min),
			zap.Duration("max", op.Max))
	}

	names = names[:0]
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := s.Metrics[name]
		log.Info("metric",
			zap.String("metric", name),
			zap.Int64("count", m.Count),
			zap.Float64("avg", m.Avg),
			zap.Float64("min", m.Min),
			zap.Float64("max", m.Max))
	}
}
