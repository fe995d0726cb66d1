package inference

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ORTTensor is the subset of *ort.Tensor[float32] needed to read an output.
type ORTTensor interface {
	GetData() []float32
	GetShape() ort.Shape
}

// FromORT wraps an ONNX Runtime output tensor in a View.
//
// Rank-3 tensors are read as (batch, anchors, width); rank-2 tensors as a
// single image (anchors, width). The last dimension must equal width.
//
// Arguments:
//   - t: The output tensor, typically session.Outputs[i].
//   - width: Expected channel width (10, 2 or 4 for RetinaFace).
//
// Returns:
//   - *View: A view sharing the tensor's memory. It is only valid until the
//     tensor is destroyed.
//   - error: ErrInvalidInputShape or ErrBufferSizeMismatch.
func FromORT(t ORTTensor, width int) (*View, error) {
	if t == nil {
		return nil, errors.Wrap(ErrInvalidInputShape, "nil tensor")
	}

	shape := t.GetShape()
	var batch, anchors, last int64
	switch len(shape) {
	case 3:
		batch, anchors, last = shape[0], shape[1], shape[2]
	case 2:
		batch, anchors, last = 1, shape[0], shape[1]
	default:
		return nil, errors.Wrapf(ErrInvalidInputShape, "tensor rank %d, want 2 or 3 (shape %v)", len(shape), shape)
	}
	if last != int64(width) {
		return nil, errors.Wrapf(ErrBufferSizeMismatch, "tensor width %d, want %d (shape %v)", last, width, shape)
	}

	data := t.GetData()
	if int64(len(data)) != shape.FlattenedSize() {
		return nil, errors.Wrapf(ErrBufferSizeMismatch,
			"tensor holds %d floats, shape %v needs %d", len(data), shape, shape.FlattenedSize())
	}

	return NewView(data, int(batch), int(anchors), width)
}
