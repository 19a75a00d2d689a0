package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/ngramgen/pkg/corpus"
	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"
)

// generateFlags are the generator settings that can be given on the command
// line. They only override the config file when set.
type generateFlags struct {
	order    int
	count    int
	workers  int
	backend  string
	seed     uint64
	maxSteps int
}

func (f *generateFlags) flags(withCount bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "order",
			Aliases:     []string{"n"},
			Usage:       "window size of the n-gram model",
			Destination: &f.order,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"w"},
			Usage:       "number of texts processed in parallel",
			Destination: &f.workers,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "frequency table backend (memory, sqlite)",
			Destination: &f.backend,
		},
	}
	if withCount {
		flags = append(flags,
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"m"},
				Usage:       "number of sentences per text",
				Destination: &f.count,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "random seed for reproducible output (0 picks a random one)",
				Destination: &f.seed,
			},
			&cli.IntFlag{
				Name:        "max-steps",
				Usage:       "maximum tokens drawn per sentence (0 means unlimited)",
				Destination: &f.maxSteps,
			},
		)
	}
	return flags
}

// apply copies every flag that was set on cmd into cfg.
func (f *generateFlags) apply(cmd *cli.Command, cfg *GeneratorConfig) {
	if cmd.IsSet("order") {
		cfg.Order = f.order
	}
	if cmd.IsSet("count") {
		cfg.Sentences = f.count
	}
	if cmd.IsSet("workers") {
		cfg.Workers = f.workers
	}
	if cmd.IsSet("backend") {
		cfg.Backend = f.backend
	}
	if cmd.IsSet("seed") {
		cfg.Seed = f.seed
	}
	if cmd.IsSet("max-steps") {
		cfg.MaxSteps = f.maxSteps
	}
}

// newRunner builds a Runner from the effective generator settings.
func (a *app) newRunner(cmd *cli.Command, f *generateFlags) (*corpus.Runner, error) {
	f.apply(cmd, a.config.Generator)
	if err := a.config.Validate(); err != nil {
		return nil, err
	}
	g := a.config.Generator

	factory, err := tableFactory(g, a.logger)
	if err != nil {
		return nil, err
	}
	return &corpus.Runner{
		Order:     g.Order,
		Sentences: g.Sentences,
		Workers:   g.Workers,
		MaxSteps:  g.MaxSteps,
		Seed:      g.Seed,
		NewTable:  factory,
		Logger:    a.logger,
	}, nil
}

func loadArgs(cmd *cli.Command) ([]corpus.Source, error) {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return nil, errors.New("at least one text file is required")
	}
	return corpus.LoadFiles(paths)
}

func (a *app) generateCmd() *cli.Command {
	var (
		f      generateFlags
		output string
	)

	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate sentences from one model per text file",
		ArgsUsage: "FILE...",
		Flags: append(f.flags(true),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write the report to this file instead of stdout",
				Destination: &output,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, err := a.newRunner(cmd, &f)
			if err != nil {
				return err
			}
			sources, err := loadArgs(cmd)
			if err != nil {
				return err
			}

			batches := runner.Run(ctx, sources)

			var buf bytes.Buffer
			writeReport(&buf, batches)

			failed := 0
			for _, b := range batches {
				if b.Err != nil {
					failed++
					a.logger.ErrorContext(ctx, "Text failed", slog.String("text", b.Label), slog.Any("error", b.Err))
				}
			}

			if output != "" {
				if err = atomic.WriteFile(output, &buf); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				a.logger.InfoContext(ctx, "Report written", slog.String("path", output))
			} else if _, err = buf.WriteTo(a.stdout); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d texts failed", failed, len(batches))
			}
			return nil
		},
	}
}

// writeReport prints every batch as a label line, its sentences one per line
// and a blank line.
func writeReport(w io.Writer, batches []corpus.Batch) {
	for _, b := range batches {
		_, _ = fmt.Fprintln(w, "Text: ", b.Label)
		for _, s := range b.Sentences {
			_, _ = fmt.Fprintln(w, s)
		}
		_, _ = fmt.Fprintln(w)
	}
}
