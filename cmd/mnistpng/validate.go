package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mnistpng/internal/logger"
	"github.com/samcharles93/mnistpng/pkg/idx"
)

var errInvalidDataset = errors.New("validate: dataset files are not valid MNIST IDX files")

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the magic numbers of the image and label files",
		Flags: datasetFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyDatasetConfig(cmd, cfg)
			images, labels, err := resolveDataset(imagesPath, labelsPath, dataDir, datasetSet)
			if err != nil {
				return err
			}
			return validateFiles(log, images, labels)
		},
	}
}

func validateFiles(log logger.Logger, images, labels string) error {
	imagesOK := idx.IsValidMnistFile(images, true)
	labelsOK := idx.IsValidMnistFile(labels, false)
	log.Info("image file", "path", images, "valid", imagesOK)
	log.Info("label file", "path", labels, "valid", labelsOK)

	switch {
	case imagesOK && labelsOK:
		return nil
	case !imagesOK && !labelsOK:
		return fmt.Errorf("%w: %s, %s", errInvalidDataset, images, labels)
	case !imagesOK:
		return fmt.Errorf("%w: %s", errInvalidDataset, images)
	default:
		return fmt.Errorf("%w: %s", errInvalidDataset, labels)
	}
}
