package retinaface

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-retinaface/images"
)

// LandmarkCount is the number of facial keypoints RetinaFace regresses.
const LandmarkCount = 5

// DecodeBox turns a (dx, dy, dw, dh) regression into a pixel-space box.
//
//	cx' = cx + dx*v0*pw        w' = pw * exp(dw*v1)
//	cy' = cy + dy*v0*ph        h' = ph * exp(dh*v1)
//	x1  = cx' - w'/2           x2 = x1 + w'
//	y1  = cy' - h'/2           y2 = y1 + h'
//
// x coordinates are then scaled by the image width and y by the height.
//
// Arguments:
//   - loc: The four offsets of one anchor.
//   - prior: The anchor the offsets are relative to.
//   - variance: Training-time scale constants.
//   - size: Network input resolution.
//
// Returns:
//   - images.Rect: The decoded box in pixels.
func DecodeBox(loc []float32, prior Prior, variance Variance, size ImageSize) images.Rect {
	cx := prior.CX + loc[0]*variance[0]*prior.W
	cy := prior.CY + loc[1]*variance[0]*prior.H
	w := prior.W * math32.Exp(loc[2]*variance[1])
	h := prior.H * math32.Exp(loc[3]*variance[1])

	x1 := cx - w/2
	y1 := cy - h/2
	x2 := x1 + w
	y2 := y1 + h

	sw := float32(size.Width)
	sh := float32(size.Height)
	return images.Rect{X1: x1 * sw, Y1: y1 * sh, X2: x2 * sw, Y2: y2 * sh}
}

// EncodeBox is the inverse of DecodeBox: it returns the offsets that decode
// to box against prior. It is used to build fixtures and round-trip checks.
func EncodeBox(box images.Rect, prior Prior, variance Variance, size ImageSize) [4]float32 {
	sw := float32(size.Width)
	sh := float32(size.Height)

	w := (box.X2 - box.X1) / sw
	h := (box.Y2 - box.Y1) / sh
	cx := box.X1/sw + w/2
	cy := box.Y1/sh + h/2

	return [4]float32{
		(cx - prior.CX) / (variance[0] * prior.W),
		(cy - prior.CY) / (variance[0] * prior.H),
		math32.Log(w/prior.W) / variance[1],
		math32.Log(h/prior.H) / variance[1],
	}
}

// DecodeLandmarks turns ten landmark offsets into five pixel-space points.
// Only the first variance component is used; the landmark head was trained
// that way, unlike the box width and height.
func DecodeLandmarks(pre []float32, prior Prior, variance Variance, size ImageSize) [LandmarkCount]images.Point {
	sw := float32(size.Width)
	sh := float32(size.Height)

	var points [LandmarkCount]images.Point
	for p := range points {
		x := prior.CX + pre[2*p]*variance[0]*prior.W
		y := prior.CY + pre[2*p+1]*variance[0]*prior.H
		points[p] = images.Point{X: x * sw, Y: y * sh}
	}
	return points
}

// EncodeLandmarks is the inverse of DecodeLandmarks.
func EncodeLandmarks(points [LandmarkCount]images.Point, prior Prior, variance Variance, size ImageSize) [2 * LandmarkCount]float32 {
	sw := float32(size.Width)
	sh := float32(size.Height)

	var pre [2 * LandmarkCount]float32
	for p, pt := range points {
		pre[2*p] = (pt.X/sw - prior.CX) / (variance[0] * prior.W)
		pre[2*p+1] = (pt.Y/sh - prior.CY) / (variance[0] * prior.H)
	}
	return pre
}

// CheckBox returns ErrDegenerateGeometry when box has a non-positive or
// non-finite width or height.
func CheckBox(box images.Rect) error {
	if box.Degenerate() {
		return errors.Wrapf(ErrDegenerateGeometry, "box %s", box)
	}
	return nil
}
