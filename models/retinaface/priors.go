package retinaface

import (
	"fmt"
	"sync/atomic"

	"github.com/chewxy/math32"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Prior is a reference box in normalised image coordinates.
type Prior struct {
	CX float32 `json:"cx" yaml:"cx"`
	CY float32 `json:"cy" yaml:"cy"`
	W  float32 `json:"w" yaml:"w"`
	H  float32 `json:"h" yaml:"h"`
}

// PriorSet is the ordered anchor list. Index i corresponds to anchor row i of
// every raw output tensor, so the order is part of the model contract:
// feature level, then grid row, then grid column, then anchor size.
type PriorSet []Prior

func validateImageSize(size ImageSize) error {
	if size.Height <= 0 || size.Width <= 0 {
		return errors.Wrapf(ErrInvalidInputShape, "image size %s must be positive", size)
	}
	return nil
}

// featureMap returns the grid rows and columns of a level with the given stride.
func featureMap(size ImageSize, step int) (rows, cols int) {
	rows = int(math32.Ceil(float32(size.Height) / float32(step)))
	cols = int(math32.Ceil(float32(size.Width) / float32(step)))
	return rows, cols
}

// PriorCount returns the number of priors GeneratePriors would produce,
// without building them.
func PriorCount(config AnchorConfig, size ImageSize) (int, error) {
	if err := config.Validate(); err != nil {
		return 0, err
	}
	if err := validateImageSize(size); err != nil {
		return 0, err
	}

	count := 0
	for k, step := range config.Steps {
		rows, cols := featureMap(size, step)
		count += rows * cols * len(config.MinSizes[k])
	}
	return count, nil
}

// GeneratePriors lays out the anchor boxes for one input resolution.
//
// For level k with stride s the grid is ceil(H/s) × ceil(W/s). Every cell
// (i, j) emits one prior per configured size m, in configuration order:
//
//	CX = (j + 0.5) * s / W    CY = (i + 0.5) * s / H
//	W  = m / W                H  = m / H
//
// Arguments:
//   - config: Feature pyramid layout.
//   - size: Network input resolution.
//
// Returns:
//   - PriorSet: The anchors in tensor order.
//   - error: ErrInvalidInputShape for an invalid layout or size.
func GeneratePriors(config AnchorConfig, size ImageSize) (PriorSet, error) {
	count, err := PriorCount(config, size)
	if err != nil {
		return nil, err
	}

	width := float32(size.Width)
	height := float32(size.Height)
	priors := make(PriorSet, 0, count)

	for k, step := range config.Steps {
		rows, cols := featureMap(size, step)
		stride := float32(step)
		for i := 0; i < rows; i++ {
			cy := (float32(i) + 0.5) * stride / height
			for j := 0; j < cols; j++ {
				cx := (float32(j) + 0.5) * stride / width
				for _, m := range config.MinSizes[k] {
					priors = append(priors, Prior{
						CX: cx,
						CY: cy,
						W:  float32(m) / width,
						H:  float32(m) / height,
					})
				}
			}
		}
	}

	if config.Clip {
		for i := range priors {
			p := &priors[i]
			p.CX = clamp01(p.CX)
			p.CY = clamp01(p.CY)
			p.W = clamp01(p.W)
			p.H = clamp01(p.H)
		}
	}

	return priors, nil
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

// CacheStats reports prior cache usage.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// PriorCache memoises prior sets per (layout, resolution).
//
// It is a bounded LRU safe for concurrent use. Concurrent misses on the same
// key compute the set once; misses on different keys proceed independently.
// Returned sets are shared between callers and must not be modified.
type PriorCache struct {
	entries *lru.Cache[string, PriorSet]
	group   singleflight.Group
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewPriorCache creates a cache holding at most capacity prior sets.
func NewPriorCache(capacity int) (*PriorCache, error) {
	entries, err := lru.New[string, PriorSet](capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "create prior cache of size %d", capacity)
	}
	return &PriorCache{entries: entries}, nil
}

func cacheKey(config AnchorConfig, size ImageSize) string {
	return fmt.Sprintf("%v|%v|%t|%s", config.MinSizes, config.Steps, config.Clip, size)
}

// GetOrCompute returns the cached prior set for the layout and size, building
// and storing it on a miss.
func (c *PriorCache) GetOrCompute(config AnchorConfig, size ImageSize) (PriorSet, error) {
	key := cacheKey(config, size)
	if priors, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return priors, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if priors, ok := c.entries.Get(key); ok {
			c.hits.Add(1)
			return priors, nil
		}
		c.misses.Add(1)
		priors, err := GeneratePriors(config, size)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, priors)
		return priors, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(PriorSet), nil
}

// Len returns the number of cached prior sets.
func (c *PriorCache) Len() int {
	return c.entries.Len()
}

// Stats returns hit and miss counters since creation.
func (c *PriorCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}
