package benchmark

import (
	"fmt"
	"math/rand"

	"github.com/nvr-ai/go-retinaface/images"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
)

// Scenario defines a specific benchmark configuration
type Scenario struct {
	Name          string               `json:"name" yaml:"name"`
	Resolution    retinaface.ImageSize `json:"resolution" yaml:"resolution"`
	BatchSize     int                  `json:"batch_size" yaml:"batch_size"`
	FacesPerImage int                  `json:"faces_per_image" yaml:"faces_per_image"`
	Iterations    int                  `json:"iterations" yaml:"iterations"`
	WarmupRuns    int                  `json:"warmup_runs" yaml:"warmup_runs"`
	Seed          int64                `json:"seed" yaml:"seed"`
}

// ScenarioBuilder helps build scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:          name,
			Resolution:    retinaface.ImageSize{Height: 640, Width: 640},
			BatchSize:     1,
			FacesPerImage: 10,
			Iterations:    100,
			WarmupRuns:    10,
			Seed:          1,
		},
	}
}

// WithResolution sets the network input resolution
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = retinaface.ImageSize{Height: height, Width: width}
	return sb
}

// WithBatchSize sets the number of images per call
func (sb *ScenarioBuilder) WithBatchSize(batchSize int) *ScenarioBuilder {
	sb.scenario.BatchSize = batchSize
	return sb
}

// WithFaces sets how many faces are planted in every image
func (sb *ScenarioBuilder) WithFaces(faces int) *ScenarioBuilder {
	sb.scenario.FacesPerImage = faces
	return sb
}

// WithIterations sets the number of measured iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// QuickScenarios returns one scenario per common resolution at batch 1.
func QuickScenarios() []Scenario {
	sizes := []int{320, 480, 640}
	scenarios := make([]Scenario, 0, len(sizes))
	for _, s := range sizes {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("quick_%dx%d", s, s)).
			WithResolution(s, s).
			WithIterations(20).
			WithWarmupRuns(2).
			Build())
	}
	return scenarios
}

// Synthesize builds raw (landmarks, confidence, boxes) buffers for a batch in
// which every image holds the given number of faces, each planted on a
// distinct random anchor and matching its prior. Every other anchor is
// background.
//
// Arguments:
//   - priors: Prior set for the scenario resolution.
//   - size: Network input resolution.
//   - variance: Regression variances the processor decodes with.
//   - batch: Number of images.
//   - faces: Faces per image.
//   - seed: Random seed.
//
// Returns:
//   - [][]float32: The three buffers in processor order.
func Synthesize(priors retinaface.PriorSet, size retinaface.ImageSize, variance retinaface.Variance, batch, faces int, seed int64) [][]float32 {
	anchors := len(priors)
	landmarks := make([]float32, batch*anchors*retinaface.LandmarkWidth)
	confidence := make([]float32, batch*anchors*retinaface.ConfidenceWidth)
	boxes := make([]float32, batch*anchors*retinaface.BoxWidth)
	for i := 0; i < batch*anchors; i++ {
		confidence[i*retinaface.ConfidenceWidth] = 4
		confidence[i*retinaface.ConfidenceWidth+1] = -4
	}

	rng := rand.New(rand.NewSource(seed))
	for b := 0; b < batch; b++ {
		used := map[int]bool{}
		for f := 0; f < faces && len(used) < anchors; f++ {
			a := rng.Intn(anchors)
			for used[a] {
				a = rng.Intn(anchors)
			}
			used[a] = true

			p := priors[a]
			cx := p.CX * float32(size.Width)
			cy := p.CY * float32(size.Height)
			w := p.W * float32(size.Width)
			h := p.H * float32(size.Height)
			box := images.Rect{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
			var points [retinaface.LandmarkCount]images.Point
			for k := range points {
				points[k] = images.Point{X: cx + float32(k-2)*w/8, Y: cy}
			}

			row := b*anchors + a
			confidence[row*retinaface.ConfidenceWidth] = 0
			confidence[row*retinaface.ConfidenceWidth+1] = 2 + rng.Float32()*4
			loc := retinaface.EncodeBox(box, p, variance, size)
			copy(boxes[row*retinaface.BoxWidth:], loc[:])
			pre := retinaface.EncodeLandmarks(points, p, variance, size)
			copy(landmarks[row*retinaface.LandmarkWidth:], pre[:])
		}
	}

	return [][]float32{landmarks, confidence, boxes}
}
