package retinaface

import "github.com/nvr-ai/go-retinaface/images"

// Face is one finished detection.
type Face struct {
	// Box is the face box in pixels of the network input.
	Box images.Rect `json:"box" yaml:"box"`
	// Score is the face-class probability.
	Score float32 `json:"score" yaml:"score"`
	// Landmarks are the eyes, nose tip and mouth corners, in that order.
	Landmarks [LandmarkCount]images.Point `json:"landmarks" yaml:"landmarks"`
}

// Groups returns the face in the three-group wire layout:
//
//	[[x1, y1, x2, y2], [score], [lx0, ly0, ..., lx4, ly4]]
//
// The score is a one-element group rather than a bare number.
func (f Face) Groups() [][]float32 {
	landmarks := make([]float32, 0, 2*LandmarkCount)
	for _, p := range f.Landmarks {
		landmarks = append(landmarks, p.X, p.Y)
	}
	return [][]float32{
		{f.Box.X1, f.Box.Y1, f.Box.X2, f.Box.Y2},
		{f.Score},
		landmarks,
	}
}

// BatchResult holds one face list per image, in batch order.
type BatchResult [][]Face

// Groups converts every face of every image with Face.Groups.
func (b BatchResult) Groups() [][][][]float32 {
	out := make([][][][]float32, len(b))
	for i, faces := range b {
		out[i] = make([][][]float32, len(faces))
		for j, f := range faces {
			out[i][j] = f.Groups()
		}
	}
	return out
}

// Count returns the total number of faces across the batch.
func (b BatchResult) Count() int {
	n := 0
	for _, faces := range b {
		n += len(faces)
	}
	return n
}
