package images

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / (10000+10000-2500)
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
			epsilon:  0.001,
		},
		{
			name:     "Sub-pixel boxes",
			r1:       Rect{0.5, 0.5, 1.5, 1.5},
			r2:       Rect{1.0, 0.5, 2.0, 1.5},
			expected: 1.0 / 3.0,
			epsilon:  0.0001,
		},
		{
			name:     "Empty boxes",
			r1:       Rect{10, 10, 10, 10},
			r2:       Rect{10, 10, 10, 10},
			expected: 0.0,
			epsilon:  0.0001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			if math.Abs(float64(result-tt.expected)) > float64(tt.epsilon) {
				t.Errorf("IoU() = %v, expected %v (±%v)", result, tt.expected, tt.epsilon)
			}

			// IoU(A, B) must equal IoU(B, A)
			reverse := CalculateIoU(tt.r2, tt.r1)
			if math.Abs(float64(result-reverse)) > float64(tt.epsilon) {
				t.Errorf("IoU not symmetric: IoU(A,B)=%v != IoU(B,A)=%v", result, reverse)
			}
		})
	}
}

func TestRect_Degenerate(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	assert.False(t, Rect{0, 0, 1, 1}.Degenerate())
	assert.True(t, Rect{0, 0, 0, 1}.Degenerate())
	assert.True(t, Rect{5, 5, 1, 10}.Degenerate())
	assert.True(t, Rect{0, 0, nan, 1}.Degenerate())
	assert.True(t, Rect{0, 0, 1, inf}.Degenerate())

	assert.Equal(t, float32(0), Rect{5, 5, 1, 10}.Area())
	assert.Equal(t, float32(200), Rect{0, 0, 10, 20}.Area())
}

func TestRect_String(t *testing.T) {
	r := Rect{X1: 100.123, Y1: 200.456, X2: 300.789, Y2: 400.012}
	assert.Equal(t, "(100.12, 200.46), (300.79, 400.01)", r.String())
}

func BenchmarkIoU_PartialOverlap(b *testing.B) {
	rect1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	rect2 := Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect1, rect2)
	}
}
