package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	want := []float32{0, 1.5, -2.25, 1e-7, 3.4e38}
	require.NoError(t, writeTensor(path, want))

	got, err := readTensor(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadTensor_Errors(t *testing.T) {
	dir := t.TempDir()
	odd := filepath.Join(dir, "odd.bin")
	require.NoError(t, os.WriteFile(odd, []byte{1, 2, 3, 4, 5, 6}, 0o600))

	_, err := readTensor(odd)
	assert.Error(t, err)

	_, err = readTensor(filepath.Join(dir, "missing.bin"))
	assert.Error(t, err)

	_, err = decodeTensor(strings.NewReader("ab"), 1)
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-landmarks", "l", "-confidence", "c", "-boxes", "b", "-batch", "2", "-height", "480"})
	require.NoError(t, err)
	assert.Equal(t, 2, o.batch)
	assert.Equal(t, 480, o.height)
	assert.Equal(t, 640, o.width)
	assert.Equal(t, "retinaface-resnet50", o.model)

	_, err = parseFlags([]string{"-landmarks", "l"})
	assert.Error(t, err)

	o, err = parseFlags([]string{"-bench"})
	require.NoError(t, err)
	assert.True(t, o.bench)
}

func TestRun_DumpThenDecode(t *testing.T) {
	dir := t.TempDir()
	base := options{
		model:    "retinaface-mobilenet0.25",
		batch:    2,
		height:   320,
		width:    320,
		logLevel: "error",
	}

	dumpOpts := base
	dumpOpts.dumpDir = dir
	require.NoError(t, run(context.Background(), dumpOpts, &bytes.Buffer{}))

	decodeOpts := base
	decodeOpts.landmarks = filepath.Join(dir, "landmarks.bin")
	decodeOpts.confidence = filepath.Join(dir, "confidence.bin")
	decodeOpts.boxes = filepath.Join(dir, "boxes.bin")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), decodeOpts, &out))

	var groups [][][][]float32
	require.NoError(t, json.Unmarshal(out.Bytes(), &groups))
	require.Len(t, groups, 2)
	for _, faces := range groups {
		require.Len(t, faces, 1)
		assert.Len(t, faces[0][0], 4)
		assert.Len(t, faces[0][1], 1)
		assert.Len(t, faces[0][2], 10)
	}
}

func TestRun_Errors(t *testing.T) {
	err := run(context.Background(), options{model: "yolov4"}, &bytes.Buffer{})
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "short.bin")
	require.NoError(t, writeTensor(path, make([]float32, 8)))
	err = run(context.Background(), options{
		model:      "retinaface-resnet50",
		landmarks:  path,
		confidence: path,
		boxes:      path,
		batch:      1,
		height:     640,
		width:      640,
	}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRealMain_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, realMain([]string{"-h"}, &stdout, &stderr))

	stderr.Reset()
	assert.Equal(t, 2, realMain([]string{"-batch", "two"}, &stdout, &stderr))
	assert.NotEmpty(t, stderr.String())

	stderr.Reset()
	assert.Equal(t, 2, realMain(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-landmarks, -confidence and -boxes are required")

	missing := filepath.Join(dir, "missing.bin")
	assert.Equal(t, 1, realMain([]string{
		"-landmarks", missing, "-confidence", missing, "-boxes", missing, "-log-level", "error",
	}, &stdout, &stderr))

	assert.Equal(t, 0, realMain([]string{"-dump", dir, "-width", "320", "-height", "320", "-log-level", "error"}, &stdout, &stderr))
	assert.FileExists(t, filepath.Join(dir, "boxes.bin"))
}
