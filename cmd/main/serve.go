package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"
)

// newEcho builds the HTTP API around a GenerateAPI.
func newEcho(api *GenerateAPI) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	api.Register(e)
	return e
}

func (a *app) serveCmd() *cli.Command {
	var (
		addr    string
		backend string
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the generation HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "frequency table backend (memory, sqlite)",
				Destination: &backend,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.IsSet("addr") {
				a.config.Server.Addr = addr
			}
			if cmd.IsSet("backend") {
				a.config.Generator.Backend = backend
			}
			if err := a.config.Validate(); err != nil {
				return err
			}

			factory, err := tableFactory(a.config.Generator, a.logger)
			if err != nil {
				return err
			}
			api := NewGenerateAPI(a.config.Server, a.config.Generator, factory, a.logger)
			e := newEcho(api)

			readTimeout := time.Duration(a.config.Server.ReadTimeoutSec) * time.Second
			a.logger.InfoContext(ctx, "Starting API server",
				slog.String("address", a.config.Server.Addr),
				slog.String("backend", a.config.Generator.Backend),
				slog.String("version", Version),
			)
			sc := echo.StartConfig{
				Address: a.config.Server.Addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					srv.ReadTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
