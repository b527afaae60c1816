package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mnistpng/internal/export"
	"github.com/samcharles93/mnistpng/internal/logger"
)

func exportCmd() *cli.Command {
	var (
		outDir    string
		start     int64
		count     int64
		randomise bool
		seed      int64
		byLabel   bool
		manifest  bool
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write dataset records as PNG files",
		Flags: append(datasetFlags(),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output directory (default: $" + envMnistOutDir + " or ./out/<set>)",
				Destination: &outDir,
			},
			&cli.Int64Flag{
				Name:        "start",
				Aliases:     []string{"s"},
				Usage:       "index of the first record to export",
				Destination: &start,
			},
			&cli.Int64Flag{
				Name:        "count",
				Aliases:     []string{"number", "n"},
				Usage:       "number of records to export (0 = through the last record)",
				Destination: &count,
			},
			&cli.BoolFlag{
				Name:        "randomise",
				Aliases:     []string{"randomize", "r"},
				Usage:       "export in random order with random file names",
				Destination: &randomise,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for --randomise (0 = random)",
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "by-label",
				Usage:       "write each image into a sub-directory named after its label",
				Destination: &byLabel,
			},
			&cli.BoolFlag{
				Name:        "manifest",
				Usage:       "write " + export.ManifestName + " listing every exported file",
				Destination: &manifest,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyExportConfig(cmd, cfg, &outDir, &byLabel)
			if randomise {
				preferDirectSeek(cmd, cfg)
			}

			out, err := resolveOutDir(outDir, datasetSet)
			if err != nil {
				return err
			}
			cursor, err := openDataset()
			if err != nil {
				return err
			}
			defer func() { _ = cursor.Close() }()

			cols, rows := cursor.Dims()
			log.Info("dataset opened", "records", cursor.RecordCount(), "rows", rows, "cols", cols)

			ex := export.New(export.Options{
				OutDir:    out,
				Start:     int(start),
				Count:     int(count),
				Randomise: randomise,
				Seed:      uint64(seed),
				ByLabel:   byLabel,
				Manifest:  manifest,
			}, log)
			ex.OnProgress(progressReporter(os.Stderr, stderrIsTTY(), log))

			sum, err := ex.Export(ctx, cursor)
			if err != nil {
				if sum != nil && sum.Written > 0 {
					log.Warn("export stopped early", "written", sum.Written)
				}
				return fmt.Errorf("export: %w", err)
			}
			if sum.Manifest != "" {
				log.Info("manifest written", "path", sum.Manifest)
			}
			return nil
		},
	}
}

// progressReporter redraws a counter on interactive terminals and logs every
// tenth of the way otherwise.
func progressReporter(w io.Writer, tty bool, log logger.Logger) export.ProgressFunc {
	next := 0
	return func(done, total int) {
		if tty {
			_, _ = fmt.Fprintf(w, "\rexport: %d/%d", done, total)
			if done == total {
				_, _ = fmt.Fprintln(w)
			}
			return
		}
		if done*10 >= next*total {
			log.Info("export progress", "done", done, "total", total)
			next = done*10/total + 1
		}
	}
}
