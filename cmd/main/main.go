package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app holds the state shared by all commands once the root command has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	config *Config
	logger *slog.Logger
	stdout io.Writer
	stderr *os.File
}

func newApp(stdout io.Writer, stderr *os.File) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "ngramgen",
		Usage:   "Generate sentences from n-gram models of plain text",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to the JSON or YAML config file, created with defaults if missing",
				Value:       "./config.json",
				Destination: &a.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Destination: &a.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (text, json, auto)",
				Destination: &a.logFormat,
			},
		},
		Before: a.before,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			a.generateCmd(),
			a.statsCmd(),
			a.serveCmd(),
		},
	}
}

// before loads the config file and builds the logger. Flags given on the
// command line take precedence over the file.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return ctx, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.IsSet("log-level") {
		config.Log.Level = a.logLevel
	}
	if cmd.IsSet("log-format") {
		config.Log.Format = a.logFormat
	}

	logger, err := newLogger(config.Log, a.stderr)
	if err != nil {
		return ctx, err
	}
	a.config = config
	a.logger = logger
	logger.DebugContext(ctx, "Configuration loaded", slog.String("path", a.configPath))
	return ctx, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).command().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
