//go:build gocv

// Package visualize - Draws decoded faces onto OpenCV images.
package visualize

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-retinaface/models/retinaface"
)

var (
	boxColor   = color.RGBA{0, 255, 0, 0}
	labelColor = color.RGBA{255, 255, 255, 0}
	// Eyes, nose tip and mouth corners.
	landmarkColors = [retinaface.LandmarkCount]color.RGBA{
		{0, 0, 255, 0},
		{0, 255, 255, 0},
		{255, 0, 255, 0},
		{0, 255, 0, 0},
		{255, 0, 0, 0},
	}
)

// Scale maps network-input pixels to image pixels, for when the frame was
// resized before inference.
type Scale struct {
	X float32
	Y float32
}

// ScaleFor returns the scale from a network input size to an image.
func ScaleFor(size retinaface.ImageSize, img gocv.Mat) Scale {
	return Scale{
		X: float32(img.Cols()) / float32(size.Width),
		Y: float32(img.Rows()) / float32(size.Height),
	}
}

func (s Scale) point(x, y float32) image.Point {
	return image.Pt(int(x*s.X), int(y*s.Y))
}

// DrawFaces draws every face's box, score and landmarks onto img.
func DrawFaces(img *gocv.Mat, faces []retinaface.Face, scale Scale) {
	for _, f := range faces {
		rect := image.Rectangle{
			Min: scale.point(f.Box.X1, f.Box.Y1),
			Max: scale.point(f.Box.X2, f.Box.Y2),
		}
		gocv.Rectangle(img, rect, boxColor, 2)
		gocv.PutText(img, fmt.Sprintf("%.2f", f.Score), rect.Min.Add(image.Pt(0, -4)),
			gocv.FontHersheyPlain, 1.0, labelColor, 1)

		for i, p := range f.Landmarks {
			gocv.Circle(img, scale.point(p.X, p.Y), 2, landmarkColors[i], -1)
		}
	}
}
