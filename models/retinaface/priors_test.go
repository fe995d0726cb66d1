package retinaface

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorCount_DefaultConfig(t *testing.T) {
	tests := []struct {
		size     ImageSize
		expected int
	}{
		{ImageSize{Height: 640, Width: 640}, (80*80 + 40*40 + 20*20) * 2},
		{ImageSize{Height: 320, Width: 320}, (40*40 + 20*20 + 10*10) * 2},
		{ImageSize{Height: 480, Width: 640}, (60*80 + 30*40 + 15*20) * 2},
		// ceil(100/8)=13, ceil(100/16)=7, ceil(100/32)=4
		{ImageSize{Height: 100, Width: 100}, (13*13 + 7*7 + 4*4) * 2},
	}

	for _, tt := range tests {
		t.Run(tt.size.String(), func(t *testing.T) {
			count, err := PriorCount(DefaultAnchorConfig(), tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, count)

			priors, err := GeneratePriors(DefaultAnchorConfig(), tt.size)
			require.NoError(t, err)
			assert.Len(t, priors, tt.expected)
		})
	}
}

func TestGeneratePriors_IterationOrder(t *testing.T) {
	config := AnchorConfig{
		MinSizes: [][]int{{1, 2}, {3}},
		Steps:    []int{2, 4},
	}
	priors, err := GeneratePriors(config, ImageSize{Height: 4, Width: 4})
	require.NoError(t, err)

	expected := PriorSet{
		// level 0, row 0
		{CX: 0.25, CY: 0.25, W: 0.25, H: 0.25},
		{CX: 0.25, CY: 0.25, W: 0.5, H: 0.5},
		{CX: 0.75, CY: 0.25, W: 0.25, H: 0.25},
		{CX: 0.75, CY: 0.25, W: 0.5, H: 0.5},
		// level 0, row 1
		{CX: 0.25, CY: 0.75, W: 0.25, H: 0.25},
		{CX: 0.25, CY: 0.75, W: 0.5, H: 0.5},
		{CX: 0.75, CY: 0.75, W: 0.25, H: 0.25},
		{CX: 0.75, CY: 0.75, W: 0.5, H: 0.5},
		// level 1
		{CX: 0.5, CY: 0.5, W: 0.75, H: 0.75},
	}
	assert.Equal(t, expected, priors)
}

func TestGeneratePriors_NonSquare(t *testing.T) {
	config := AnchorConfig{MinSizes: [][]int{{4}}, Steps: []int{4}}
	priors, err := GeneratePriors(config, ImageSize{Height: 4, Width: 8})
	require.NoError(t, err)

	assert.Equal(t, PriorSet{
		{CX: 0.25, CY: 0.5, W: 0.5, H: 1},
		{CX: 0.75, CY: 0.5, W: 0.5, H: 1},
	}, priors)
}

func TestGeneratePriors_Clip(t *testing.T) {
	config := AnchorConfig{MinSizes: [][]int{{512}}, Steps: []int{320}, Clip: true}
	priors, err := GeneratePriors(config, ImageSize{Height: 320, Width: 320})
	require.NoError(t, err)
	require.Len(t, priors, 1)
	assert.Equal(t, Prior{CX: 0.5, CY: 0.5, W: 1, H: 1}, priors[0])

	config.Clip = false
	priors, err = GeneratePriors(config, ImageSize{Height: 320, Width: 320})
	require.NoError(t, err)
	assert.InDelta(t, 1.6, priors[0].W, 1e-6)
}

func TestGeneratePriors_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config AnchorConfig
		size   ImageSize
	}{
		{"level mismatch", AnchorConfig{MinSizes: [][]int{{16}}, Steps: []int{8, 16}}, ImageSize{640, 640}},
		{"no levels", AnchorConfig{}, ImageSize{640, 640}},
		{"zero step", AnchorConfig{MinSizes: [][]int{{16}}, Steps: []int{0}}, ImageSize{640, 640}},
		{"empty level", AnchorConfig{MinSizes: [][]int{{}}, Steps: []int{8}}, ImageSize{640, 640}},
		{"negative size", AnchorConfig{MinSizes: [][]int{{-16}}, Steps: []int{8}}, ImageSize{640, 640}},
		{"zero height", DefaultAnchorConfig(), ImageSize{0, 640}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GeneratePriors(tt.config, tt.size)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInputShape), "got %v", err)
		})
	}
}

func TestPriorCache_HitAfterFirst(t *testing.T) {
	cache, err := NewPriorCache(100)
	require.NoError(t, err)

	size := ImageSize{Height: 640, Width: 640}
	first, err := cache.GetOrCompute(DefaultAnchorConfig(), size)
	require.NoError(t, err)
	second, err := cache.GetOrCompute(DefaultAnchorConfig(), size)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Same(t, &first[0], &second[0], "a hit must return the cached set")
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, Entries: 1}, cache.Stats())

	clipped := DefaultAnchorConfig()
	clipped.Clip = true
	_, err = cache.GetOrCompute(clipped, size)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len(), "clip is part of the key")
}

func TestPriorCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewPriorCache(2)
	require.NoError(t, err)

	config := AnchorConfig{MinSizes: [][]int{{16}}, Steps: []int{32}}
	for _, h := range []int{64, 128, 64, 256} {
		_, err := cache.GetOrCompute(config, ImageSize{Height: h, Width: 64})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cache.Len())
	stats := cache.Stats()
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)

	// 128 was evicted, 64 was refreshed before 256 arrived.
	_, err = cache.GetOrCompute(config, ImageSize{Height: 64, Width: 64})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cache.Stats().Misses)
}

func TestPriorCache_ConcurrentMissesComputeOnce(t *testing.T) {
	cache, err := NewPriorCache(4)
	require.NoError(t, err)

	const goroutines = 32
	sets := make([]PriorSet, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			priors, err := cache.GetOrCompute(DefaultAnchorConfig(), ImageSize{Height: 640, Width: 640})
			assert.NoError(t, err)
			sets[i] = priors
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1), cache.Stats().Misses)
	for _, s := range sets {
		assert.Len(t, s, 16800)
	}
}

func TestPriorCache_ErrorNotCached(t *testing.T) {
	cache, err := NewPriorCache(4)
	require.NoError(t, err)

	_, err = cache.GetOrCompute(AnchorConfig{}, ImageSize{Height: 640, Width: 640})
	assert.True(t, errors.Is(err, ErrInvalidInputShape))
	assert.Equal(t, 0, cache.Len())
}

func TestNewPriorCache_InvalidCapacity(t *testing.T) {
	_, err := NewPriorCache(0)
	assert.Error(t, err)
}

func BenchmarkGeneratePriors640(b *testing.B) {
	config := DefaultAnchorConfig()
	size := ImageSize{Height: 640, Width: 640}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = GeneratePriors(config, size)
	}
}
