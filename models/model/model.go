// Package model - Definitions for RetinaFace model variants.
package model

// Family is the family of models.
type Family string

const (
	// ModelFamilyRetinaFace is the RetinaFace face detector family.
	ModelFamilyRetinaFace Family = "retinaface"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameRetinaFaceResNet50 is the RetinaFace ResNet-50 checkpoint.
	ModelNameRetinaFaceResNet50 Name = "retinaface-resnet50"
	// ModelNameRetinaFaceMobileNet is the RetinaFace MobileNet-0.25 checkpoint.
	ModelNameRetinaFaceMobileNet Name = "retinaface-mobilenet0.25"
)

// Outputs are the ONNX output names of both checkpoints, in the order the
// post-processor consumes them.
var Outputs = []string{"landmarks", "confidence", "boxes"}

// BaseModel describes a registered model.
type BaseModel struct {
	Name    Name     `json:"name" yaml:"name"`
	Family  Family   `json:"family" yaml:"family"`
	Outputs []string `json:"outputs" yaml:"outputs"`
}

// NewModelArgs is the arguments for creating a new post-processor.
type NewModelArgs struct {
	Name Name `json:"name" yaml:"name"`
	// ConfigPath is an optional YAML overlay on the default configuration.
	ConfigPath string `json:"config_path" yaml:"config_path"`
}
