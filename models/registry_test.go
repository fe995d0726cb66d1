package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-retinaface/models/model"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
)

func TestLookup(t *testing.T) {
	for _, name := range []model.Name{model.ModelNameRetinaFaceResNet50, model.ModelNameRetinaFaceMobileNet} {
		m, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.Name)
		assert.Equal(t, model.ModelFamilyRetinaFace, m.Family)
		assert.Equal(t, []string{"landmarks", "confidence", "boxes"}, m.Outputs)
	}

	_, err := Lookup("yolov4")
	assert.Error(t, err)
}

func TestNewPostProcessor_Defaults(t *testing.T) {
	processor, err := NewPostProcessor(
		model.NewModelArgs{Name: model.ModelNameRetinaFaceResNet50},
		retinaface.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, retinaface.DefaultConfig(), processor.Config())

	face, err := DefaultClasses.GetIndex(model.ModelFamilyRetinaFace, "face")
	require.NoError(t, err)
	assert.Equal(t, face, processor.FaceClass())
}

func TestNewPostProcessor_FaceClassOverride(t *testing.T) {
	processor, err := NewPostProcessor(
		model.NewModelArgs{Name: model.ModelNameRetinaFaceMobileNet},
		retinaface.WithLogger(zap.NewNop()),
		retinaface.WithFaceClass(0))
	require.NoError(t, err)
	assert.Equal(t, 0, processor.FaceClass())
}

func TestNewPostProcessor_ConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobilenet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("confidence_threshold: 0.02\n"), 0o600))

	processor, err := NewPostProcessor(model.NewModelArgs{
		Name:       model.ModelNameRetinaFaceMobileNet,
		ConfigPath: path,
	}, retinaface.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, float32(0.02), processor.Config().ConfidenceThreshold)
}

func TestNewPostProcessor_Errors(t *testing.T) {
	_, err := NewPostProcessor(model.NewModelArgs{Name: "rfdetr"})
	assert.Error(t, err)

	_, err = NewPostProcessor(model.NewModelArgs{
		Name:       model.ModelNameRetinaFaceResNet50,
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	assert.Error(t, err)
}
