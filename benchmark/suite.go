package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-retinaface/logger"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
	"github.com/nvr-ai/go-retinaface/profiler"
)

// Suite manages and executes benchmark scenarios against one post-processor.
type Suite struct {
	processor *retinaface.PostProcessor
	outputDir string
	log       *zap.Logger
	prof      *profiler.Profiler
	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - processor: The post-processor under test.
//   - outputDir: Where SaveResults writes; empty disables saving.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(processor *retinaface.PostProcessor, outputDir string) *Suite {
	return &Suite{
		processor: processor,
		outputDir: outputDir,
		log:       logger.Log().Named("benchmark"),
		scenarios: make([]Scenario, 0),
		results:   make([]PerformanceMetrics, 0),
	}
}

// WithProfiler attaches the profiler the processor records into, so each
// scenario's metrics carry per-stage timings.
func (s *Suite) WithProfiler(prof *profiler.Profiler) *Suite {
	s.prof = prof
	return s
}

// AddScenario adds a scenario to the suite
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// RunScenario executes a single scenario.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s: iterations must be positive", scenario.Name)
	}

	config := s.processor.Config()
	priors, err := s.processor.Priors(scenario.Resolution)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}
	buffers := Synthesize(priors, scenario.Resolution, config.Variance,
		scenario.BatchSize, scenario.FacesPerImage, scenario.Seed)
	imageSize := []int{scenario.Resolution.Height, scenario.Resolution.Width}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := s.processor.ProcessRaw(ctx, buffers, scenario.BatchSize, imageSize); err != nil {
			return nil, errors.Wrapf(err, "scenario %s warmup", scenario.Name)
		}
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
	}

	s.prof.Reset()

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	startTime := time.Now()
	failures := 0
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
		}
		callStart := time.Now()
		result, err := s.processor.ProcessRaw(ctx, buffers, scenario.BatchSize, imageSize)
		metrics.PostProcessDuration += time.Since(callStart)
		if err != nil {
			failures++
			continue
		}
		metrics.DetectionCount += result.Count()
	}
	metrics.TotalDuration = time.Since(startTime)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	frames := float64(scenario.Iterations * scenario.BatchSize)
	if seconds := metrics.PostProcessDuration.Seconds(); seconds > 0 {
		metrics.FramesPerSecond = frames / seconds
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = memoryDelta(&startMem, &endMem)
	metrics.CPUStats = cpuMetrics()
	if s.prof != nil {
		metrics.Stages = s.prof.Snapshot().Operations
	}

	return metrics, nil
}

// RunAllScenarios executes every configured scenario and saves the results.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	s.mu.RLock()
	scenarios := make([]Scenario, len(s.scenarios))
	copy(scenarios, s.scenarios)
	s.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.log.Warn("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.log.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Int("detections", metrics.DetectionCount))
	}

	if s.outputDir == "" {
		return nil
	}
	return s.SaveResults()
}

// SaveResults persists results as JSON and a CSV summary.
func (s *Suite) SaveResults() error {
	results := s.GetResults()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return errors.Wrap(err, "failed to save summary CSV")
	}

	s.log.Info("results saved", zap.String("results", resultsFile), zap.String("summary", summaryFile))
	return nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	header := "Scenario,Resolution,Batch,FPS,PostProcess_ms,Alloc_MB,Detections,Error_Rate\n"
	if _, err := file.WriteString(header); err != nil {
		return err
	}

	for _, r := range results {
		line := fmt.Sprintf("%s,%s,%d,%.2f,%.3f,%.2f,%d,%.4f\n",
			r.Scenario.Name,
			r.Scenario.Resolution,
			r.Scenario.BatchSize,
			r.FramesPerSecond,
			float64(r.PostProcessDuration.Nanoseconds())/1e6,
			float64(r.MemoryStats.TotalAllocBytes)/(1024*1024),
			r.DetectionCount,
			r.ErrorRate,
		)
		if _, err := file.WriteString(line); err != nil {
			return err
		}
	}

	return nil
}

// GetResults returns all benchmark results
func (s *Suite) GetResults() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]PerformanceMetrics, len(s.results))
	copy(results, s.results)
	return results
}
