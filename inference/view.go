// Package inference - Validated read-only views over raw model output tensors.
package inference

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// View is a read-only, bounds-checked window over a contiguous row-major
// float32 buffer shaped (batch, anchors, width).
//
// The shape is validated once in NewView; Row indexes without
// re-checking the buffer length.
type View struct {
	dense   *tensor.Dense
	data    []float32
	strides []int
	batch   int
	anchors int
	width   int
}

// NewView validates data against the declared shape and wraps it.
//
// Arguments:
//   - data: Contiguous float32 buffer, not copied.
//   - batch: Number of images.
//   - anchors: Number of anchors per image.
//   - width: Channel width per anchor.
//
// Returns:
//   - *View: The validated view.
//   - error: ErrInvalidInputShape for non-positive dimensions,
//     ErrBufferSizeMismatch when len(data) != batch*anchors*width.
//
// @example
// view, err := NewView(confidence, 1, 16800, 2)
//
//	if err != nil {
//	    return err
//	}
//
// score := view.Row(0, 42)[1]
func NewView(data []float32, batch, anchors, width int) (*View, error) {
	if batch <= 0 || anchors <= 0 || width <= 0 {
		return nil, errors.Wrapf(ErrInvalidInputShape,
			"dimensions must be positive, got (%d, %d, %d)", batch, anchors, width)
	}
	if anchors > math.MaxInt/width || batch > math.MaxInt/(anchors*width) {
		return nil, errors.Wrapf(ErrInvalidInputShape,
			"shape (%d, %d, %d) overflows", batch, anchors, width)
	}

	expected := batch * anchors * width
	if len(data) != expected {
		return nil, errors.Wrapf(ErrBufferSizeMismatch,
			"got %d floats, want %d (%d × %d × %d)", len(data), expected, batch, anchors, width)
	}

	dense := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(batch, anchors, width),
		tensor.WithBacking(data),
	)

	return &View{
		dense:   dense,
		data:    dense.Float32s(),
		strides: dense.Strides(),
		batch:   batch,
		anchors: anchors,
		width:   width,
	}, nil
}

// Batch returns the number of images in the view.
func (v *View) Batch() int { return v.batch }

// Anchors returns the number of anchors per image.
func (v *View) Anchors() int { return v.anchors }

// Width returns the channel width of each anchor row.
func (v *View) Width() int { return v.width }

// Shape returns the (batch, anchors, width) shape.
func (v *View) Shape() tensor.Shape { return v.dense.Shape() }

// Row returns the width-long channel slice of anchor a in image b. The slice
// has its capacity capped so appends never reach the neighbouring row.
func (v *View) Row(b, a int) []float32 {
	off := b*v.strides[0] + a*v.strides[1]
	return v.data[off : off+v.width : off+v.width]
}

// Channel returns channel c of every anchor in image b as a contiguous
// anchors-long tensor. The result is a copy and may be modified.
func (v *View) Channel(b, c int) (*tensor.Dense, error) {
	if b < 0 || b >= v.batch || c < 0 || c >= v.width {
		return nil, errors.Wrapf(ErrInvalidInputShape,
			"channel (%d, %d) outside shape %v", b, c, v.dense.Shape())
	}

	sliced, err := v.dense.Slice(tensor.S(b), nil, tensor.S(c))
	if err != nil {
		return nil, errors.Wrapf(err, "slice channel %d of image %d", c, b)
	}
	dense, ok := sliced.Materialize().(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("channel %d of image %d is not dense", c, b)
	}
	if err := dense.Reshape(v.anchors); err != nil {
		return nil, errors.Wrapf(err, "reshape channel %d of image %d", c, b)
	}
	return dense, nil
}
