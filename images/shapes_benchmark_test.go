package images

import (
	"math/rand"
	"testing"
)

// Benchmark cases covering IoU inputs with different overlap characteristics.

func BenchmarkIoU_NonOverlapping(b *testing.B) {
	rect1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	rect2 := Rect{X1: 200, Y1: 200, X2: 300, Y2: 300}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect1, rect2)
	}
}

func BenchmarkIoU_FullOverlap(b *testing.B) {
	rect := Rect{X1: 10.5, Y1: 10.5, X2: 110.5, Y2: 110.5}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect, rect)
	}
}

func BenchmarkIoU_TouchingEdges(b *testing.B) {
	rect1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	rect2 := Rect{X1: 100, Y1: 0, X2: 200, Y2: 100}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect1, rect2)
	}
}

// BenchmarkIoU_RandomPairs uses face-sized boxes inside a 640x640 input.
func BenchmarkIoU_RandomPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	const pairs = 1024
	rects := make([]Rect, 2*pairs)
	for i := range rects {
		x := rng.Float32() * 600
		y := rng.Float32() * 600
		s := 16 + rng.Float32()*200
		rects[i] = Rect{X1: x, Y1: y, X2: x + s, Y2: y + s}
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		j := (i % pairs) * 2
		_ = CalculateIoU(rects[j], rects[j+1])
	}
}
