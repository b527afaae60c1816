// Package export writes decoded IDX records to disk as PNG files.
package export

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samcharles93/mnistpng/internal/logger"
	"github.com/samcharles93/mnistpng/pkg/idx"
)

// ManifestName is the file written next to the images when Options.Manifest
// is set.
const ManifestName = "manifest.json"

var ErrInvalidOptions = errors.New("export: invalid options")

// Source is the part of idx.Cursor the exporter drives.
type Source interface {
	RecordCount() int
	Seek(target int) error
	NextRecord() (*idx.Record, error)
}

var _ Source = (*idx.Cursor)(nil)

type Options struct {
	OutDir string
	// Start is the first record exported. Count limits the number of
	// records; zero exports through the last record.
	Start int
	Count int
	// Randomise exports records in random order under random file names.
	// Seed makes the order reproducible; zero picks a random seed.
	Randomise bool
	Seed      uint64
	// ByLabel writes each image into a sub-directory named after its label.
	ByLabel  bool
	Manifest bool
}

// Entry describes one written image.
type Entry struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	File  string `json:"file"`
}

type Summary struct {
	OutDir   string  `json:"out_dir"`
	Written  int     `json:"written"`
	Manifest string  `json:"manifest,omitempty"`
	Entries  []Entry `json:"entries"`
}

// ProgressFunc is called after every written record.
type ProgressFunc func(done, total int)

type Exporter struct {
	opts     Options
	log      logger.Logger
	progress ProgressFunc
	newName  func() string
}

func New(opts Options, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.Default()
	}
	return &Exporter{
		opts:    opts,
		log:     log,
		newName: uuid.NewString,
	}
}

// OnProgress registers fn to be called after every written record.
func (e *Exporter) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// Export writes the selected records of src. It stops between records when
// ctx is cancelled and returns what was written so far.
func (e *Exporter) Export(ctx context.Context, src Source) (*Summary, error) {
	order, err := e.plan(src.RecordCount())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output directory: %w", err)
	}

	sum := &Summary{OutDir: e.opts.OutDir, Entries: make([]Entry, 0, len(order))}
	e.log.Info("exporting records",
		"count", len(order),
		"start", e.opts.Start,
		"randomise", e.opts.Randomise,
		"out", e.opts.OutDir,
	)

	for i, target := range order {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		// sequential exports only need one seek; the cursor then walks forward
		if e.opts.Randomise || i == 0 {
			if err := src.Seek(target); err != nil {
				return sum, fmt.Errorf("export: seek to record %d: %w", target, err)
			}
		}
		rec, err := src.NextRecord()
		if err != nil {
			return sum, fmt.Errorf("export: decode record %d: %w", target, err)
		}

		rel := e.fileName(rec)
		if err := writePNG(filepath.Join(e.opts.OutDir, rel), rec); err != nil {
			return sum, err
		}
		sum.Entries = append(sum.Entries, Entry{Index: rec.Index, Label: rec.Label, File: filepath.ToSlash(rel)})
		sum.Written++
		e.log.Debug("wrote record", "index", rec.Index, "label", rec.Label, "file", rel)
		if e.progress != nil {
			e.progress(sum.Written, len(order))
		}
	}

	if e.opts.Manifest {
		path, err := writeManifest(e.opts.OutDir, sum.Entries)
		if err != nil {
			return sum, err
		}
		sum.Manifest = path
	}
	e.log.Info("export finished", "written", sum.Written)
	return sum, nil
}

// plan returns the record indices to export, in export order.
func (e *Exporter) plan(total int) ([]int, error) {
	o := e.opts
	switch {
	case o.OutDir == "":
		return nil, fmt.Errorf("%w: output directory is required", ErrInvalidOptions)
	case o.Count < 0:
		return nil, fmt.Errorf("%w: count %d is negative", ErrInvalidOptions, o.Count)
	case total == 0:
		return nil, fmt.Errorf("%w: dataset has no records", ErrInvalidOptions)
	case o.Start < 0 || o.Start >= total:
		return nil, fmt.Errorf("%w: start %d not in [0, %d)", ErrInvalidOptions, o.Start, total)
	}

	avail := total - o.Start
	n := avail
	if o.Count > 0 && o.Count < avail {
		n = o.Count
	}

	order := make([]int, 0, n)
	if !o.Randomise {
		for i := 0; i < n; i++ {
			order = append(order, o.Start+i)
		}
		return order, nil
	}

	seed := o.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, off := range rng.Perm(avail)[:n] {
		order = append(order, o.Start+off)
	}
	return order, nil
}

func (e *Exporter) fileName(rec *idx.Record) string {
	var base string
	if e.opts.Randomise {
		base = e.newName() + ".png"
	} else {
		base = fmt.Sprintf("%05d_%s.png", rec.Index, rec.Label)
	}
	if e.opts.ByLabel {
		return filepath.Join(rec.Label, base)
	}
	return base
}

func writePNG(path string, rec *idx.Record) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()
	if err := png.Encode(f, rec.Pixels.Image()); err != nil {
		return fmt.Errorf("export: encode record %d: %w", rec.Index, err)
	}
	return nil
}

func writeManifest(dir string, entries []Entry) (string, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("export: write manifest: %w", err)
	}
	return path, nil
}
