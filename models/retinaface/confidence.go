package retinaface

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-retinaface/inference"
)

// expUnderflow is the magnitude past which exp(-x) is below the smallest
// float32 subnormal.
const expUnderflow = 104

// FaceScore returns the face-class probability of a (background, face) logit
// pair: exp(l1) / (exp(l0) + exp(l1)).
func FaceScore(logits []float32) float32 {
	_, face := softmaxMargin(logits[0] - logits[1])
	return face
}

// softmaxMargin evaluates the two-way softmax from d = l0 - l1. exp only ever
// sees a non-positive argument, so large margins saturate to 0 and 1 and the
// pair sums to 1 for every finite d.
func softmaxMargin(d float32) (background, face float32) {
	m := math32.Abs(d)
	var e float32
	if m < expUnderflow {
		e = math32.Exp(-m)
	}
	small := e / (1 + e)
	large := 1 / (1 + e)
	if d < 0 {
		return small, large
	}
	return large, small
}

// ImageScores returns the probability of class face for every anchor of
// image b in anchor order. With face = 1 each score equals FaceScore of the
// anchor's row.
//
// Arguments:
//   - confidence: Validated (batch, anchors, 2) confidence view.
//   - b: Image index.
//   - face: Channel of the face class, 0 or 1.
//
// Returns:
//   - []float32: One score per anchor.
//   - error: If b or face is out of range or the view is not two channels wide.
func ImageScores(confidence *inference.View, b, face int) ([]float32, error) {
	if confidence.Width() != ConfidenceWidth {
		return nil, errors.Wrapf(ErrBufferSizeMismatch,
			"confidence tensor width %d, want %d", confidence.Width(), ConfidenceWidth)
	}
	if face != 0 && face != 1 {
		return nil, errors.Wrapf(ErrInvalidInputShape, "face channel %d", face)
	}
	other, err := confidence.Channel(b, 1-face)
	if err != nil {
		return nil, err
	}
	target, err := confidence.Channel(b, face)
	if err != nil {
		return nil, err
	}

	margins, err := tensor.Sub(other, target)
	if err != nil {
		return nil, errors.Wrapf(err, "logit margins of image %d", b)
	}
	dense, ok := margins.(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("logit margins of image %d are %T", b, margins)
	}
	scores := dense.Float32s()
	for a, d := range scores {
		_, scores[a] = softmaxMargin(d)
	}
	return scores, nil
}
