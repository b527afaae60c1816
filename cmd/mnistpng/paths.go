package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/mnistpng/pkg/idx"
)

const (
	envMnistDataDir = "MNISTPNG_DATA_DIR"
	envMnistOutDir  = "MNISTPNG_OUT_DIR"
)

// stderrIsTTY is a small seam for tests.
var stderrIsTTY = func() bool { return isTTY(os.Stderr) }

// canonicalSet maps a split name to its MNIST file prefix.
func canonicalSet(set string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(set)) {
	case "", "train":
		return "train", nil
	case "t10k", "test":
		return "t10k", nil
	default:
		return "", fmt.Errorf("unknown dataset split %q (want train or t10k)", set)
	}
}

// datasetCandidates lists the file names MNIST mirrors use for one role.
func datasetCandidates(prefix, role string) []string {
	dims := "idx3"
	if role == "labels" {
		dims = "idx1"
	}
	base := []string{
		fmt.Sprintf("%s-%s-%s-ubyte", prefix, role, dims),
		fmt.Sprintf("%s-%s.%s-ubyte", prefix, role, dims),
	}
	out := make([]string, 0, len(base)*2)
	for _, b := range base {
		out = append(out, b, b+".gz")
	}
	return out
}

// resolveDataset picks the image and label paths from explicit flags, or
// from the standard file names inside the data directory.
func resolveDataset(images, labels, dir, set string) (string, string, error) {
	images = strings.TrimSpace(images)
	labels = strings.TrimSpace(labels)
	switch {
	case images != "" && labels != "":
		return filepath.Clean(images), filepath.Clean(labels), nil
	case images != "" || labels != "":
		return "", "", errors.New("--images and --labels must be given together")
	}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envMnistDataDir))
	}
	if dir == "" {
		return "", "", fmt.Errorf("--images/--labels or --data-dir is required unless %s is set", envMnistDataDir)
	}
	prefix, err := canonicalSet(set)
	if err != nil {
		return "", "", err
	}

	imgPath, err := findFirst(dir, datasetCandidates(prefix, "images"))
	if err != nil {
		return "", "", err
	}
	lblPath, err := findFirst(dir, datasetCandidates(prefix, "labels"))
	if err != nil {
		return "", "", err
	}
	return imgPath, lblPath, nil
}

func findFirst(dir string, names []string) (string, error) {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("none of %s found in %s", strings.Join(names, ", "), dir)
}

// resolveOutDir returns the export directory: the flag, then the env var,
// then ./out/<set>.
func resolveOutDir(outFlag, set string) (string, error) {
	if out := strings.TrimSpace(outFlag); out != "" {
		return filepath.Clean(out), nil
	}
	if out := strings.TrimSpace(os.Getenv(envMnistOutDir)); out != "" {
		return filepath.Clean(out), nil
	}
	prefix, err := canonicalSet(set)
	if err != nil {
		return "", err
	}
	return filepath.Join(".", "out", prefix), nil
}

// openDataset resolves the dataset flags and opens a cursor over it.
func openDataset() (*idx.Cursor, error) {
	images, labels, err := resolveDataset(imagesPath, labelsPath, dataDir, datasetSet)
	if err != nil {
		return nil, err
	}
	var opts []idx.Option
	if directSeek {
		opts = append(opts, idx.WithDirectSeek())
	}
	if skipCountCheck {
		opts = append(opts, idx.WithoutCountCheck())
	}
	return idx.Open(images, labels, opts...)
}
