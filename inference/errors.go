package inference

import "github.com/pkg/errors"

// Error kinds surfaced by the post-processing boundary. Callers match them
// with errors.Is; the messages wrapped around them carry the offending sizes.
var (
	// ErrInvalidInputShape reports a wrong tensor count, image-size arity,
	// batch size or dimension.
	ErrInvalidInputShape = errors.New("invalid input shape")
	// ErrBufferSizeMismatch reports a buffer whose length does not match
	// batch × anchors × width.
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")
)
