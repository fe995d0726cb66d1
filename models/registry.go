// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-retinaface/models/model"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
)

var registry = map[model.Name]model.BaseModel{
	model.ModelNameRetinaFaceResNet50: {
		Name:    model.ModelNameRetinaFaceResNet50,
		Family:  model.ModelFamilyRetinaFace,
		Outputs: model.Outputs,
	},
	model.ModelNameRetinaFaceMobileNet: {
		Name:    model.ModelNameRetinaFaceMobileNet,
		Family:  model.ModelFamilyRetinaFace,
		Outputs: model.Outputs,
	},
}

// Lookup returns the registered description of a model.
func Lookup(name model.Name) (model.BaseModel, error) {
	m, ok := registry[name]
	if !ok {
		return model.BaseModel{}, errors.Errorf("unsupported model name: %s", name)
	}
	return m, nil
}

// NewPostProcessor creates the post-processor for a registered model.
//
// Both RetinaFace checkpoints share the default anchor pyramid, so the model
// name only selects the registry entry; ConfigPath, when set, overlays a YAML
// file on the defaults. The face channel is looked up in the family's class
// set; a WithFaceClass in opts overrides it.
//
// Arguments:
//   - args: Model name and optional config path.
//   - opts: Options forwarded to retinaface.NewPostProcessor.
//
// Returns:
//   - *retinaface.PostProcessor: The processor.
//   - error: If the model is unknown or the config cannot be loaded.
//
// Example:
//
// ```go
//
//	processor, err := NewPostProcessor(model.NewModelArgs{
//	    Name: model.ModelNameRetinaFaceMobileNet,
//	})
//
//	if err != nil {
//	    log.Fatalf("Failed to create post-processor: %v", err)
//	}
//
// ```
func NewPostProcessor(args model.NewModelArgs, opts ...retinaface.Option) (*retinaface.PostProcessor, error) {
	m, err := Lookup(args.Name)
	if err != nil {
		return nil, err
	}
	face, err := DefaultClasses.GetIndex(m.Family, "face")
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", args.Name)
	}

	config := retinaface.DefaultConfig()
	if args.ConfigPath != "" {
		config, err = retinaface.LoadConfig(args.ConfigPath)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s config", args.Name)
		}
	}
	opts = append([]retinaface.Option{retinaface.WithFaceClass(face)}, opts...)
	return retinaface.NewPostProcessor(config, opts...)
}
