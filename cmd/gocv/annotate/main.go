//go:build gocv

// Command annotate decodes raw RetinaFace tensors for a single image and draws
// the faces onto it.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-retinaface/logger"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
	"github.com/nvr-ai/go-retinaface/visualize"
)

func main() {
	var (
		imagePath  string
		outputPath string
		landmarks  string
		confidence string
		boxes      string
		configPath string
		height     int
		width      int
	)
	flag.StringVar(&imagePath, "image", "", "Path to the source image")
	flag.StringVar(&outputPath, "output", "faces.jpg", "Path of the annotated image")
	flag.StringVar(&landmarks, "landmarks", "", "Path to the landmark tensor")
	flag.StringVar(&confidence, "confidence", "", "Path to the confidence tensor")
	flag.StringVar(&boxes, "boxes", "", "Path to the box tensor")
	flag.StringVar(&configPath, "config", "", "Optional YAML config overlay")
	flag.IntVar(&height, "height", 640, "Network input height")
	flag.IntVar(&width, "width", 640, "Network input width")
	flag.Parse()

	if err := logger.InitDevelopment(); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Log()

	if err := annotate(imagePath, outputPath, []string{landmarks, confidence, boxes}, configPath,
		retinaface.ImageSize{Height: height, Width: width}); err != nil {
		log.Fatal("annotate failed", zap.Error(err))
	}
	log.Info("wrote annotated image", zap.String("path", outputPath))
}

func annotate(imagePath, outputPath string, tensors []string, configPath string, size retinaface.ImageSize) error {
	config := retinaface.DefaultConfig()
	if configPath != "" {
		var err error
		if config, err = retinaface.LoadConfig(configPath); err != nil {
			return err
		}
	}
	processor, err := retinaface.NewPostProcessor(config)
	if err != nil {
		return err
	}

	buffers := make([][]float32, len(tensors))
	for i, path := range tensors {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read tensor %s", path)
		}
		buffers[i] = make([]float32, len(data)/4)
		if _, err := binary.Decode(data, binary.LittleEndian, buffers[i]); err != nil {
			return errors.Wrapf(err, "decode tensor %s", path)
		}
	}

	result, err := processor.ProcessRaw(context.Background(), buffers, 1, []int{size.Height, size.Width})
	if err != nil {
		return err
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return errors.Errorf("cannot read image %s", imagePath)
	}
	defer img.Close()

	visualize.DrawFaces(&img, result[0], visualize.ScaleFor(size, img))
	if !gocv.IMWrite(outputPath, img) {
		return errors.Errorf("cannot write image %s", outputPath)
	}
	return nil
}
