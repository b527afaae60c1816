package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mnistpng/internal/api"
	"github.com/samcharles93/mnistpng/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		rps         float64
		burst       int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve dataset records as PNG over HTTP",
		Flags: append(datasetFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Float64Flag{
				Name:        "rate",
				Usage:       "record requests per second (0 = unlimited)",
				Value:       50,
				Destination: &rps,
			},
			&cli.Int64Flag{
				Name:        "burst",
				Usage:       "request burst size",
				Value:       20,
				Destination: &burst,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr, &rps)
			// random access is the common case for the server
			preferDirectSeek(cmd, cfg)

			cursor, err := openDataset()
			if err != nil {
				return err
			}
			defer func() { _ = cursor.Close() }()

			server := api.NewServer(cursor, api.Config{
				RequestsPerSecond: rps,
				Burst:             int(burst),
			}, log.WithGroup("api"))
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "records", cursor.RecordCount())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
