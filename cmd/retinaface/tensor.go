package main

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// readTensor reads a headerless little-endian float32 dump, the format
// numpy's tofile and onnxruntime's raw output writers produce.
func readTensor(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open tensor %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat tensor %s", path)
	}
	if info.Size()%4 != 0 {
		return nil, errors.Errorf("tensor %s is %d bytes, not a whole number of float32s", path, info.Size())
	}
	return decodeTensor(f, int(info.Size()/4))
}

func decodeTensor(r io.Reader, n int) ([]float32, error) {
	data := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, errors.Wrap(err, "decode float32 tensor")
	}
	return data, nil
}

// writeTensor is the inverse of readTensor.
func writeTensor(path string, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create tensor %s", path)
	}
	if err := binary.Write(f, binary.LittleEndian, data); err != nil {
		f.Close()
		return errors.Wrapf(err, "write tensor %s", path)
	}
	return f.Close()
}
