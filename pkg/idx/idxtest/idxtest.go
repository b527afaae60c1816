// Package idxtest writes small IDX fixtures for tests.
package idxtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

const (
	magicLabels uint32 = 2049
	magicImages uint32 = 2051
)

// Dataset describes the contents of a fixture pair.
type Dataset struct {
	Rows   int
	Cols   int
	Pixels [][]byte // one slice of Rows*Cols bytes per record
	Labels []byte
}

// ImageBytes encodes the image file for d.
func (d Dataset) ImageBytes() []byte {
	var buf bytes.Buffer
	writeU32(&buf, magicImages, uint32(len(d.Pixels)), uint32(d.Rows), uint32(d.Cols))
	for _, p := range d.Pixels {
		buf.Write(p)
	}
	return buf.Bytes()
}

// LabelBytes encodes the label file for d. The declared count is the number
// of image records so a short Labels slice produces a truncated file.
func (d Dataset) LabelBytes() []byte {
	var buf bytes.Buffer
	writeU32(&buf, magicLabels, uint32(len(d.Pixels)))
	buf.Write(d.Labels)
	return buf.Bytes()
}

// Write stores the dataset as two files in dir and returns their paths.
func Write(t testing.TB, dir string, d Dataset) (images, labels string) {
	t.Helper()
	images = WriteFile(t, filepath.Join(dir, "images-idx3-ubyte"), d.ImageBytes())
	labels = WriteFile(t, filepath.Join(dir, "labels-idx1-ubyte"), d.LabelBytes())
	return images, labels
}

// WriteGzip stores the dataset gzip-compressed.
func WriteGzip(t testing.TB, dir string, d Dataset) (images, labels string) {
	t.Helper()
	images = WriteFile(t, filepath.Join(dir, "images-idx3-ubyte.gz"), Gzip(t, d.ImageBytes()))
	labels = WriteFile(t, filepath.Join(dir, "labels-idx1-ubyte.gz"), Gzip(t, d.LabelBytes()))
	return images, labels
}

// WriteFile writes data to path and returns path.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Gzip compresses data.
func Gzip(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Sequential builds n records of rows x cols where every pixel of record i
// is i and the label is i%10.
func Sequential(n, rows, cols int) Dataset {
	d := Dataset{Rows: rows, Cols: cols}
	for i := 0; i < n; i++ {
		p := bytes.Repeat([]byte{byte(i)}, rows*cols)
		d.Pixels = append(d.Pixels, p)
		d.Labels = append(d.Labels, byte(i%10))
	}
	return d
}

func writeU32(buf *bytes.Buffer, vals ...uint32) {
	var b [4]byte
	for _, v := range vals {
		binary.BigEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
}
