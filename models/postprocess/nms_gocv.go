//go:build gocv

package postprocess

import (
	"image"

	"gocv.io/x/gocv"
)

// ApplyOpenCVNMS runs OpenCV's dnn NMSBoxes over the results and returns the
// kept indices. OpenCV works on integer rectangles, so boxes are rounded to the
// pixel grid first; it is meant for cross-checking ApplyGreedyNMS, not for
// producing the final detections.
func ApplyOpenCVNMS(results []Result, config *NMSConfig) []int {
	if len(results) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(results))
	scores := make([]float32, len(results))
	for i, r := range results {
		boxes[i] = image.Rect(int(r.Box.X1), int(r.Box.Y1), int(r.Box.X2), int(r.Box.Y2))
		scores[i] = r.Score
	}

	return gocv.NMSBoxes(boxes, scores, config.ScoreThreshold, config.IoUThreshold)
}
