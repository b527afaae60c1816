package main

import "github.com/urfave/cli/v3"

var (
	configFile     string
	logLevel       string
	logFormat      string
	debug          bool
	dataDir        string
	datasetSet     string
	imagesPath     string
	labelsPath     string
	directSeek     bool
	skipCountCheck bool

	// cfg is the loaded config file, set by setup.
	cfg Config
)

func datasetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "images",
			Aliases:     []string{"i"},
			Usage:       "path to the IDX image file (optionally gzipped)",
			Destination: &imagesPath,
		},
		&cli.StringFlag{
			Name:        "labels",
			Aliases:     []string{"l"},
			Usage:       "path to the IDX label file (optionally gzipped)",
			Destination: &labelsPath,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Aliases:     []string{"d"},
			Usage:       "directory holding the standard MNIST file names",
			Destination: &dataDir,
		},
		&cli.StringFlag{
			Name:        "set",
			Usage:       "dataset split to use with --data-dir (train, t10k)",
			Value:       "train",
			Destination: &datasetSet,
		},
		&cli.BoolFlag{
			Name:        "direct-seek",
			Usage:       "seek uncompressed files by byte offset instead of re-reading from the start",
			Destination: &directSeek,
		},
		&cli.BoolFlag{
			Name:        "skip-count-check",
			Usage:       "do not compare the label count against the image count",
			Destination: &skipCountCheck,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
