package retinaface

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-retinaface/inference"
)

var (
	// ErrInvalidInputShape reports a wrong tensor count, image-size arity,
	// mismatched views or an invalid anchor layout.
	ErrInvalidInputShape = inference.ErrInvalidInputShape
	// ErrBufferSizeMismatch reports a buffer whose length does not match
	// batch × anchors × width.
	ErrBufferSizeMismatch = inference.ErrBufferSizeMismatch
	// ErrDegenerateGeometry marks a decoded box with non-positive or
	// non-finite extent. Such boxes are dropped from the candidates; the
	// error is never returned by Process.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)
