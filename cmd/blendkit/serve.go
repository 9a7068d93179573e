package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/internal/server"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve a read-only inspection API for a .blend file",
		ArgsUsage: "<file.blend>",
		Flags: append(treeFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyOutputConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr)

			path, err := requireInput(cmd.Args().Slice())
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			doc, err := openDocument(ctx, path)
			if err != nil {
				return err
			}
			opts, err := treeOptions()
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			name, err := inputName(path)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.New(doc, name, opts).Register(e)
			log.Info("starting server", "address", addr, "file", path)
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
