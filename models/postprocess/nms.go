// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"
	"sync"

	"github.com/nvr-ai/go-retinaface/images"
)

// parallelCutoff is the candidate count below which ApplyNMS runs the
// sequential sweep.
const parallelCutoff = 256

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	Greedy         bool    `json:"greedy" yaml:"greedy"`                   // If true, use the sequential sweep.
	IoUThreshold   float32 `json:"iou_threshold" yaml:"iou_threshold"`     // Overlap threshold for suppression.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"` // Results must score strictly above this. 0 disables.
	NumWorkers     int     `json:"num_workers" yaml:"num_workers"`         // Goroutines for parallel IoU computation.
}

// selectionOrder returns the indices of results that pass the score threshold,
// sorted by descending score. Equal scores keep their input order so the lower
// index wins ties.
func selectionOrder(results []Result, config *NMSConfig) []int {
	order := make([]int, 0, len(results))
	for i, r := range results {
		if config.ScoreThreshold > 0 && !(r.Score > config.ScoreThreshold) {
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].Score > results[order[b]].Score
	})
	return order
}

// suppresses reports whether candidate should be removed once anchor is kept.
func suppresses(anchor, candidate Result, config *NMSConfig) bool {
	return images.CalculateIoU(anchor.Box, candidate.Box) > config.IoUThreshold
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// The results do not need to be sorted. They are visited in descending score
// order (ties broken by lower input index), each unsuppressed result is kept,
// and every later result whose IoU with it exceeds IoUThreshold is suppressed.
//
// Arguments:
//   - results: Unsorted slice of scored boxes.
//   - config: NMS configuration.
//
// Returns:
//   - Indices into results of the kept entries, in selection order.
func ApplyGreedyNMS(results []Result, config *NMSConfig) []int {
	order := selectionOrder(results, config)
	n := len(order)
	if n == 0 {
		return nil
	}

	keep := make([]int, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := results[order[i]]
		keep = append(keep, order[i])
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if suppresses(anchor, results[order[j]], config) {
				used[j] = true
			}
		}
	}

	return keep
}

// ApplyNMS is the parallel form of ApplyGreedyNMS and returns the same indices.
//
// For every kept anchor the remaining candidates are split into contiguous
// chunks, one per worker, and each worker marks suppression only for its own
// chunk, so the used slice is never written concurrently at the same index.
//
// Arguments:
//   - results: Unsorted slice of scored boxes.
//   - config: NMS configuration. NumWorkers <= 1 runs sequentially.
//
// Returns:
//   - Indices into results of the kept entries, in selection order.
func ApplyNMS(results []Result, config *NMSConfig) []int {
	workers := config.NumWorkers
	if workers <= 1 || len(results) < parallelCutoff {
		return ApplyGreedyNMS(results, config)
	}

	order := selectionOrder(results, config)
	n := len(order)
	if n == 0 {
		return nil
	}

	keep := make([]int, 0, n)
	used := make([]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := results[order[i]]
		keep = append(keep, order[i])
		used[i] = true

		remaining := n - (i + 1)
		if remaining == 0 {
			break
		}
		chunk := (remaining + workers - 1) / workers

		for start := i + 1; start < n; start += chunk {
			end := min(start+chunk, n)
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for j := start; j < end; j++ {
					if used[j] {
						continue
					}
					if suppresses(anchor, results[order[j]], config) {
						used[j] = true
					}
				}
			}(start, end)
		}
		wg.Wait()
	}

	return keep
}

// Suppress runs the variant config selects: the sequential sweep when Greedy
// is set, ApplyNMS otherwise. Both return the same indices.
func Suppress(results []Result, config *NMSConfig) []int {
	if config.Greedy {
		return ApplyGreedyNMS(results, config)
	}
	return ApplyNMS(results, config)
}
