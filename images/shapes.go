// Package images - Pixel-space geometry shared by the decoder and the NMS engine.
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Point is a single pixel-space coordinate.
type Point struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
}

// Rect is a lightweight axis-aligned bounding box in continuous coordinates.
type Rect struct {
	X1 float32 `json:"x1" yaml:"x1"`
	Y1 float32 `json:"y1" yaml:"y1"`
	X2 float32 `json:"x2" yaml:"x2"`
	Y2 float32 `json:"y2" yaml:"y2"`
}

// Width returns X2-X1. It is negative for an inverted rectangle.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns Y2-Y1. It is negative for an inverted rectangle.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns the area of the rectangle, or 0 when it is degenerate.
func (r Rect) Area() float32 {
	if r.Degenerate() {
		return 0
	}
	return r.Width() * r.Height()
}

// Degenerate reports whether the rectangle has a non-positive or non-finite
// width or height.
func (r Rect) Degenerate() bool {
	w, h := r.Width(), r.Height()
	if math32.IsNaN(w) || math32.IsNaN(h) || math32.IsInf(w, 0) || math32.IsInf(h, 0) {
		return true
	}
	return w <= 0 || h <= 0
}

// String formats the rectangle for log output.
func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
//	IoU = Area of Intersection / Area of Union
//
// The intersection corners are the maximum of the top-left corners and the
// minimum of the bottom-right corners. When the resulting width or height is
// zero or negative the boxes do not overlap and 0 is returned. A zero union
// (two empty boxes) also yields 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return interArea / unionArea
}
