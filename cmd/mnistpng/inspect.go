package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mnistpng/pkg/idx"
)

// asciiRamp runs from background to ink.
const asciiRamp = " .:-=+*#%@"

type inspectReport struct {
	Images     string         `json:"images"`
	Labels     string         `json:"labels"`
	ImageHdr   idx.Header     `json:"image_header"`
	LabelHdr   idx.Header     `json:"label_header"`
	CountMatch bool           `json:"count_match"`
	Record     *inspectRecord `json:"record,omitempty"`
}

type inspectRecord struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

func inspectCmd() *cli.Command {
	var (
		record  int64
		asJSON  bool
		showRaw bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the IDX headers and optionally render one record",
		Flags: append(datasetFlags(),
			&cli.Int64Flag{
				Name:        "record",
				Usage:       "render record N as ASCII art (-1 = none)",
				Value:       -1,
				Destination: &record,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the report as JSON",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print gray values instead of ASCII art",
				Destination: &showRaw,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyDatasetConfig(cmd, cfg)
			images, labels, err := resolveDataset(imagesPath, labelsPath, dataDir, datasetSet)
			if err != nil {
				return err
			}

			rep := inspectReport{Images: images, Labels: labels}
			if rep.ImageHdr, err = idx.ReadHeader(images); err != nil {
				return err
			}
			if rep.LabelHdr, err = idx.ReadHeader(labels); err != nil {
				return err
			}
			rep.CountMatch = rep.ImageHdr.Count == rep.LabelHdr.Count

			var rec *idx.Record
			if record >= 0 {
				rec, err = readOne(int(record))
				if err != nil {
					return err
				}
				rep.Record = &inspectRecord{Index: rec.Index, Label: rec.Label}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(os.Stdout, rep)
			if rec != nil {
				_, _ = fmt.Fprintf(os.Stdout, "\nrecord %d  label %s\n", rec.Index, rec.Label)
				if showRaw {
					_, _ = fmt.Fprint(os.Stdout, renderGray(rec.Pixels))
				} else {
					_, _ = fmt.Fprint(os.Stdout, renderASCII(rec.Pixels))
				}
			}
			return nil
		},
	}
}

func readOne(index int) (*idx.Record, error) {
	cursor, err := openDataset()
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close() }()
	if err := cursor.Seek(index); err != nil {
		return nil, err
	}
	return cursor.Record()
}

func printReport(w io.Writer, rep inspectReport) {
	_, _ = fmt.Fprintf(w, "images: %s\n", rep.Images)
	_, _ = fmt.Fprintf(w, "  magic:   %d (0x%08x)\n", rep.ImageHdr.Magic, rep.ImageHdr.Magic)
	_, _ = fmt.Fprintf(w, "  records: %d\n", rep.ImageHdr.Count)
	_, _ = fmt.Fprintf(w, "  size:    %dx%d\n", rep.ImageHdr.Cols, rep.ImageHdr.Rows)
	_, _ = fmt.Fprintf(w, "labels: %s\n", rep.Labels)
	_, _ = fmt.Fprintf(w, "  magic:   %d (0x%08x)\n", rep.LabelHdr.Magic, rep.LabelHdr.Magic)
	_, _ = fmt.Fprintf(w, "  records: %d\n", rep.LabelHdr.Count)
	if !rep.CountMatch {
		_, _ = fmt.Fprintln(w, "warning: image and label counts differ")
	}
}

// renderASCII draws dark pixels with dense characters.
func renderASCII(p idx.PixelBuffer) string {
	var b strings.Builder
	last := len(asciiRamp) - 1
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			ink := 255 - int(p.Gray(y*p.Width+x))
			b.WriteByte(asciiRamp[ink*last/255])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderGray(p idx.PixelBuffer) string {
	var b strings.Builder
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			_, _ = fmt.Fprintf(&b, "%3d", p.Gray(y*p.Width+x))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
