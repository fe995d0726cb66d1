// Package retinaface - RetinaFace output decoding: priors, offsets, scores and NMS.
package retinaface

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ImageSize is the network input resolution the raw tensors were produced at.
type ImageSize struct {
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}

// String formats the size as HxW.
func (s ImageSize) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// Variance holds the two regression scale constants used at training time.
// Index 0 scales centre and landmark offsets, index 1 scales log width/height.
type Variance [2]float32

// AnchorConfig describes the feature pyramid the priors are laid out on.
type AnchorConfig struct {
	// MinSizes lists, per feature level, the anchor base sizes in pixels.
	MinSizes [][]int `json:"min_sizes" yaml:"min_sizes"`
	// Steps is the stride of each feature level in pixels.
	Steps []int `json:"steps" yaml:"steps"`
	// Clip clamps every prior component into [0, 1].
	Clip bool `json:"clip" yaml:"clip"`
}

// Config is the complete post-processing configuration.
type Config struct {
	AnchorConfig `yaml:",inline"`

	// ConfidenceThreshold keeps anchors whose face score is strictly above it.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// NMSThreshold suppresses boxes whose IoU with a kept box exceeds it.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`
	// Variance are the regression scale constants.
	Variance Variance `json:"variance" yaml:"variance"`
	// MaxFaces truncates each image's result after NMS. 0 keeps everything.
	MaxFaces int `json:"max_faces" yaml:"max_faces"`
	// Workers bounds how many images are decoded concurrently. 0 uses NumCPU.
	Workers int `json:"workers" yaml:"workers"`
	// NMSWorkers enables the parallel NMS sweep when greater than 1.
	NMSWorkers int `json:"nms_workers" yaml:"nms_workers"`
	// CacheSize is the number of distinct prior sets kept in memory.
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// DefaultAnchorConfig returns the pyramid shared by the ResNet-50 and
// MobileNet-0.25 RetinaFace checkpoints.
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{
		MinSizes: [][]int{{16, 32}, {64, 128}, {256, 512}},
		Steps:    []int{8, 16, 32},
		Clip:     false,
	}
}

// DefaultConfig returns the configuration the published checkpoints were
// trained and evaluated with.
//
// Returns:
//   - Config: Production defaults.
//
// @example
// config := DefaultConfig()
// config.ConfidenceThreshold = 0.9
// processor, err := NewPostProcessor(config)
func DefaultConfig() Config {
	return Config{
		AnchorConfig:        DefaultAnchorConfig(),
		ConfidenceThreshold: 0.7,
		NMSThreshold:        0.4,
		Variance:            Variance{0.1, 0.2},
		MaxFaces:            0,
		Workers:             0,
		NMSWorkers:          0,
		CacheSize:           100,
	}
}

// Validate checks the anchor layout.
func (c AnchorConfig) Validate() error {
	if len(c.Steps) == 0 {
		return errors.Wrap(ErrInvalidInputShape, "anchor config has no feature levels")
	}
	if len(c.MinSizes) != len(c.Steps) {
		return errors.Wrapf(ErrInvalidInputShape,
			"anchor config has %d size levels but %d steps", len(c.MinSizes), len(c.Steps))
	}
	for k, step := range c.Steps {
		if step <= 0 {
			return errors.Wrapf(ErrInvalidInputShape, "step %d at level %d must be positive", step, k)
		}
		if len(c.MinSizes[k]) == 0 {
			return errors.Wrapf(ErrInvalidInputShape, "level %d has no anchor sizes", k)
		}
		for _, size := range c.MinSizes[k] {
			if size <= 0 {
				return errors.Wrapf(ErrInvalidInputShape, "anchor size %d at level %d must be positive", size, k)
			}
		}
	}
	return nil
}

// Validate checks every field of the configuration.
func (c Config) Validate() error {
	if err := c.AnchorConfig.Validate(); err != nil {
		return err
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence_threshold %v outside [0, 1]", c.ConfidenceThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return errors.Errorf("nms_threshold %v outside [0, 1]", c.NMSThreshold)
	}
	if c.Variance[0] <= 0 || c.Variance[1] <= 0 {
		return errors.Errorf("variance %v must be positive", c.Variance)
	}
	if c.MaxFaces < 0 || c.Workers < 0 || c.NMSWorkers < 0 {
		return errors.New("max_faces, workers and nms_workers must not be negative")
	}
	if c.CacheSize <= 0 {
		return errors.Errorf("cache_size %d must be positive", c.CacheSize)
	}
	return nil
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig, so a file
// only needs the keys it changes.
//
// Arguments:
//   - path: Path to the YAML file.
//
// Returns:
//   - Config: The merged, validated configuration.
//   - error: If the file cannot be read, parsed or validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig overlays YAML bytes on DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := config.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return config, nil
}
