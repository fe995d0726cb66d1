package retinaface

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/nvr-ai/go-retinaface/logger"
	"github.com/nvr-ai/go-retinaface/models/postprocess"
	"github.com/nvr-ai/go-retinaface/profiler"
)

// Channel widths of the three RetinaFace output heads.
const (
	LandmarkWidth   = 2 * LandmarkCount
	ConfidenceWidth = 2
	BoxWidth        = 4
)

// DefaultFaceClass is the confidence channel of the face class in the
// published RetinaFace checkpoints.
const DefaultFaceClass = 1

// PostProcessor decodes batches of RetinaFace outputs into faces.
//
// It is safe for concurrent use. Its only mutable state is the prior cache.
type PostProcessor struct {
	config  Config
	priors  *PriorCache
	nms     postprocess.NMSConfig
	face    int
	workers int
	log     *zap.Logger
	prof    *profiler.Profiler
}

// Option customises a PostProcessor.
type Option func(*PostProcessor)

// WithLogger sets the logger. The default is logger.Log().
func WithLogger(l *zap.Logger) Option {
	return func(p *PostProcessor) {
		p.log = l
	}
}

// WithPriorCache shares a prior cache between processors.
func WithPriorCache(c *PriorCache) Option {
	return func(p *PostProcessor) {
		p.priors = c
	}
}

// WithFaceClass selects the confidence channel holding the face class. It is
// also the Class of every suppression candidate.
func WithFaceClass(index int) Option {
	return func(p *PostProcessor) {
		p.face = index
	}
}

// WithProfiler records per-stage timings and candidate counts into prof.
func WithProfiler(prof *profiler.Profiler) Option {
	return func(p *PostProcessor) {
		p.prof = prof
	}
}

// NewPostProcessor validates config and builds a processor.
//
// Arguments:
//   - config: Post-processing configuration, usually DefaultConfig().
//   - opts: Optional logger and prior cache.
//
// Returns:
//   - *PostProcessor: The processor.
//   - error: If config is invalid or the cache cannot be created.
//
// @example
// processor, err := NewPostProcessor(DefaultConfig())
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// faces, err := processor.ProcessRaw(ctx, [][]float32{landmarks, confidence, boxes}, 1, []int{640, 640})
func NewPostProcessor(config Config, opts ...Option) (*PostProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid post-processing config")
	}

	p := &PostProcessor{
		config: config,
		nms: postprocess.NMSConfig{
			Greedy:         config.NMSWorkers <= 1,
			IoUThreshold:   config.NMSThreshold,
			ScoreThreshold: config.ConfidenceThreshold,
			NumWorkers:     config.NMSWorkers,
		},
		face:    DefaultFaceClass,
		workers: config.Workers,
	}
	if p.workers == 0 {
		p.workers = runtime.NumCPU()
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.face < 0 || p.face >= ConfidenceWidth {
		return nil, errors.Wrapf(ErrInvalidInputShape,
			"face class %d outside the %d confidence channels", p.face, ConfidenceWidth)
	}
	if p.log == nil {
		p.log = logger.Log()
	}
	if p.priors == nil {
		cache, err := NewPriorCache(config.CacheSize)
		if err != nil {
			return nil, err
		}
		p.priors = cache
	}
	return p, nil
}

// Config returns the processor configuration.
func (p *PostProcessor) Config() Config {
	return p.config
}

// FaceClass returns the confidence channel scored as the face class.
func (p *PostProcessor) FaceClass() int {
	return p.face
}

// Priors returns the prior set for size from the processor's cache.
func (p *PostProcessor) Priors(size ImageSize) (PriorSet, error) {
	return p.priors.GetOrCompute(p.config.AnchorConfig, size)
}

// CacheStats returns the prior cache counters.
func (p *PostProcessor) CacheStats() CacheStats {
	return p.priors.Stats()
}

// ProcessRaw is the host-facing entry point. It takes the three raw output
// buffers in the fixed order (landmarks, confidence, boxes), the batch size
// and the (height, width) image size, validates every length before reading
// any element, and decodes the batch.
//
// Arguments:
//   - ctx: Checked between images.
//   - buffers: Exactly three row-major float32 buffers.
//   - batch: Number of images.
//   - imageSize: Exactly two values, height then width.
//
// Returns:
//   - BatchResult: One face list per image.
//   - error: ErrInvalidInputShape or ErrBufferSizeMismatch; the whole batch
//     fails on any malformed input.
func (p *PostProcessor) ProcessRaw(ctx context.Context, buffers [][]float32, batch int, imageSize []int) (BatchResult, error) {
	if len(buffers) != 3 {
		return nil, errors.Wrapf(ErrInvalidInputShape, "need 3 tensors, got %d", len(buffers))
	}
	if len(imageSize) != 2 {
		return nil, errors.Wrapf(ErrInvalidInputShape, "image size needs 2 values, got %d", len(imageSize))
	}
	if batch <= 0 {
		return nil, errors.Wrapf(ErrInvalidInputShape, "batch size %d must be positive", batch)
	}

	size := ImageSize{Height: imageSize[0], Width: imageSize[1]}
	priors, err := p.Priors(size)
	if err != nil {
		return nil, err
	}

	names := [3]string{"landmark", "confidence", "box"}
	widths := [3]int{LandmarkWidth, ConfidenceWidth, BoxWidth}
	var views [3]*inference.View
	for i, buf := range buffers {
		views[i], err = inference.NewView(buf, batch, len(priors), widths[i])
		if err != nil {
			return nil, errors.Wrapf(err, "%s tensor", names[i])
		}
	}

	return p.decode(ctx, views[0], views[1], views[2], priors, size)
}

// Process decodes a batch from already validated views.
//
// Arguments:
//   - ctx: Checked between images.
//   - landmarks: (batch, anchors, 10) landmark offsets.
//   - confidence: (batch, anchors, 2) class logits.
//   - boxes: (batch, anchors, 4) box offsets.
//   - size: Network input resolution.
//
// Returns:
//   - BatchResult: One face list per image.
//   - error: If the views disagree with each other or with the prior count.
func (p *PostProcessor) Process(ctx context.Context, landmarks, confidence, boxes *inference.View, size ImageSize) (BatchResult, error) {
	if landmarks == nil || confidence == nil || boxes == nil {
		return nil, errors.Wrap(ErrInvalidInputShape, "need 3 tensors")
	}

	priors, err := p.Priors(size)
	if err != nil {
		return nil, err
	}

	checks := []struct {
		name  string
		view  *inference.View
		width int
	}{
		{"landmark", landmarks, LandmarkWidth},
		{"confidence", confidence, ConfidenceWidth},
		{"box", boxes, BoxWidth},
	}
	for _, c := range checks {
		if c.view.Width() != c.width {
			return nil, errors.Wrapf(ErrBufferSizeMismatch, "%s tensor width %d, want %d", c.name, c.view.Width(), c.width)
		}
		if c.view.Anchors() != len(priors) {
			return nil, errors.Wrapf(ErrBufferSizeMismatch,
				"%s tensor has %d anchors, %s needs %d", c.name, c.view.Anchors(), size, len(priors))
		}
		if c.view.Batch() != landmarks.Batch() {
			return nil, errors.Wrapf(ErrInvalidInputShape,
				"%s tensor batch %d differs from landmark batch %d", c.name, c.view.Batch(), landmarks.Batch())
		}
	}

	return p.decode(ctx, landmarks, confidence, boxes, priors, size)
}

// ProcessORT decodes a batch straight from onnxruntime output tensors. Rank 2
// tensors are treated as a batch of one.
func (p *PostProcessor) ProcessORT(ctx context.Context, landmarks, confidence, boxes inference.ORTTensor, size ImageSize) (BatchResult, error) {
	l, err := inference.FromORT(landmarks, LandmarkWidth)
	if err != nil {
		return nil, errors.Wrap(err, "landmark tensor")
	}
	c, err := inference.FromORT(confidence, ConfidenceWidth)
	if err != nil {
		return nil, errors.Wrap(err, "confidence tensor")
	}
	b, err := inference.FromORT(boxes, BoxWidth)
	if err != nil {
		return nil, errors.Wrap(err, "box tensor")
	}
	return p.Process(ctx, l, c, b, size)
}

// decode runs every image of the batch on a bounded worker group. Each
// worker writes only its own slot of the result.
func (p *PostProcessor) decode(ctx context.Context, landmarks, confidence, boxes *inference.View, priors PriorSet, size ImageSize) (BatchResult, error) {
	batch := landmarks.Batch()
	out := make(BatchResult, batch)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for b := 0; b < batch; b++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrapf(err, "image %d", b)
			}
			faces, err := p.decodeImage(b, landmarks, confidence, boxes, priors, size)
			if err != nil {
				return err
			}
			out[b] = faces
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "post-processing failed")
	}

	p.log.Debug("decoded batch",
		zap.Int("batch", batch),
		zap.Stringer("size", size),
		zap.Int("faces", out.Count()))
	return out, nil
}

// decodeImage filters, decodes and suppresses the anchors of image b.
// Only survivors of the confidence filter are decoded, and landmarks only for
// boxes that survive NMS.
func (p *PostProcessor) decodeImage(b int, landmarks, confidence, boxes *inference.View, priors PriorSet, size ImageSize) ([]Face, error) {
	variance := p.config.Variance

	done := p.prof.StartOperation("score")
	scores, err := ImageScores(confidence, b, p.face)
	if err != nil {
		done()
		return nil, errors.Wrapf(err, "score image %d", b)
	}
	candidates := FilterCandidates(scores, p.config.ConfidenceThreshold)
	done()

	done = p.prof.StartOperation("decode")
	results := make([]postprocess.Result, 0, len(candidates))
	anchors := make([]int, 0, len(candidates))
	degenerate := 0
	for _, a := range candidates {
		box := DecodeBox(boxes.Row(b, a), priors[a], variance, size)
		if err := CheckBox(box); err != nil {
			degenerate++
			p.log.Debug("dropping candidate", zap.Int("image", b), zap.Int("anchor", a), zap.Error(err))
			continue
		}
		results = append(results, postprocess.Result{Box: box, Score: scores[a], Class: p.face})
		anchors = append(anchors, a)
	}
	done()

	done = p.prof.StartOperation("nms")
	keep := postprocess.Suppress(results, &p.nms)
	if p.config.MaxFaces > 0 && len(keep) > p.config.MaxFaces {
		keep = keep[:p.config.MaxFaces]
	}
	done()

	done = p.prof.StartOperation("landmarks")
	faces := make([]Face, len(keep))
	for i, k := range keep {
		a := anchors[k]
		faces[i] = Face{
			Box:       results[k].Box,
			Score:     results[k].Score,
			Landmarks: DecodeLandmarks(landmarks.Row(b, a), priors[a], variance, size),
		}
	}
	done()

	p.prof.RecordMetric("candidates", float64(len(candidates)))
	p.prof.RecordMetric("kept", float64(len(faces)))
	p.log.Debug("decoded image",
		zap.Int("image", b),
		zap.Int("candidates", len(candidates)),
		zap.Int("degenerate", degenerate),
		zap.Int("kept", len(faces)))
	return faces, nil
}
