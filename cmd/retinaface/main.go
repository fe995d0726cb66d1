// Command retinaface decodes raw RetinaFace output tensors into faces.
//
// The three tensors are read from headerless little-endian float32 files and
// the faces are printed as JSON, one array per image, each face in the
// [[x1, y1, x2, y2], [score], [landmarks...]] layout. With -bench it instead
// runs the synthetic post-processing benchmark.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-retinaface/benchmark"
	"github.com/nvr-ai/go-retinaface/logger"
	"github.com/nvr-ai/go-retinaface/models"
	"github.com/nvr-ai/go-retinaface/models/model"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
	"github.com/nvr-ai/go-retinaface/profiler"
)

// options are the parsed command-line flags.
type options struct {
	model      string
	config     string
	landmarks  string
	confidence string
	boxes      string
	dumpDir    string
	batch      int
	height     int
	width      int
	logLevel   string
	bench      bool
	benchOut   string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("retinaface", flag.ContinueOnError)
	fs.StringVar(&o.model, "model", string(model.ModelNameRetinaFaceResNet50), "Model name (retinaface-resnet50, retinaface-mobilenet0.25)")
	fs.StringVar(&o.config, "config", "", "Optional YAML config overlay")
	fs.StringVar(&o.landmarks, "landmarks", "", "Path to the landmark tensor (batch, anchors, 10)")
	fs.StringVar(&o.confidence, "confidence", "", "Path to the confidence tensor (batch, anchors, 2)")
	fs.StringVar(&o.boxes, "boxes", "", "Path to the box tensor (batch, anchors, 4)")
	fs.StringVar(&o.dumpDir, "dump", "", "Write a synthetic tensor set to this directory and exit")
	fs.IntVar(&o.batch, "batch", 1, "Batch size")
	fs.IntVar(&o.height, "height", 640, "Network input height")
	fs.IntVar(&o.width, "width", 640, "Network input width")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&o.bench, "bench", false, "Run the post-processing benchmark")
	fs.StringVar(&o.benchOut, "bench-out", "benchmark_results", "Benchmark output directory")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if !o.bench && o.dumpDir == "" && (o.landmarks == "" || o.confidence == "" || o.boxes == "") {
		return o, errors.New("-landmarks, -confidence and -boxes are required")
	}
	return o, nil
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain returns the process exit code so deferred cleanup runs before
// main exits.
func realMain(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if err := logger.Init(o.logLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, stdout); err != nil {
		logger.Log().Error("retinaface failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, o options, out io.Writer) error {
	log := logger.Log()
	var prof *profiler.Profiler
	if o.bench {
		prof = profiler.New()
	}
	processor, err := models.NewPostProcessor(model.NewModelArgs{
		Name:       model.Name(o.model),
		ConfigPath: o.config,
	}, retinaface.WithLogger(log), retinaface.WithProfiler(prof))
	if err != nil {
		return err
	}
	size := retinaface.ImageSize{Height: o.height, Width: o.width}

	switch {
	case o.bench:
		suite := benchmark.NewSuite(processor, o.benchOut).WithProfiler(prof)
		for _, s := range benchmark.QuickScenarios() {
			suite.AddScenario(s)
		}
		if err := suite.RunAllScenarios(ctx); err != nil {
			return err
		}
		prof.Report(log)
		return nil
	case o.dumpDir != "":
		return dump(processor, o, size)
	}

	buffers := make([][]float32, 3)
	for i, path := range []string{o.landmarks, o.confidence, o.boxes} {
		if buffers[i], err = readTensor(path); err != nil {
			return err
		}
	}

	result, err := processor.ProcessRaw(ctx, buffers, o.batch, []int{o.height, o.width})
	if err != nil {
		return err
	}
	log.Info("decoded batch",
		zap.String("model", o.model),
		zap.Int("batch", o.batch),
		zap.Stringer("size", size),
		zap.Int("faces", result.Count()))

	enc := json.NewEncoder(out)
	return enc.Encode(result.Groups())
}

// dump writes landmarks.bin, confidence.bin and boxes.bin with one synthetic
// face per image.
func dump(processor *retinaface.PostProcessor, o options, size retinaface.ImageSize) error {
	priors, err := processor.Priors(size)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.dumpDir, 0o755); err != nil {
		return errors.Wrap(err, "create dump directory")
	}

	buffers := benchmark.Synthesize(priors, size, processor.Config().Variance, o.batch, 1, 1)
	for i, name := range []string{"landmarks.bin", "confidence.bin", "boxes.bin"} {
		if err := writeTensor(filepath.Join(o.dumpDir, name), buffers[i]); err != nil {
			return err
		}
	}
	logger.Log().Info("wrote synthetic tensors", zap.String("dir", o.dumpDir), zap.Int("anchors", len(priors)))
	return nil
}
