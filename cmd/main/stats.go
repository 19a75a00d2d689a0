package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/ngramgen/pkg/corpus"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func (a *app) statsCmd() *cli.Command {
	var f generateFlags

	return &cli.Command{
		Name:      "stats",
		Usage:     "Train one model per text file and print its statistics",
		ArgsUsage: "FILE...",
		Flags:     f.flags(false),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, err := a.newRunner(cmd, &f)
			if err != nil {
				return err
			}
			sources, err := loadArgs(cmd)
			if err != nil {
				return err
			}

			batches := runner.Describe(ctx, sources)
			failed := 0
			for i, b := range batches {
				if b.Err != nil {
					failed++
					a.logger.ErrorContext(ctx, "Text failed", slog.String("text", b.Label), slog.Any("error", b.Err))
					continue
				}
				writeStats(a.stdout, b, len(sources[i].Text))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d texts failed", failed, len(batches))
			}
			return nil
		},
	}
}

func writeStats(w io.Writer, b corpus.Batch, textBytes int) {
	_, _ = fmt.Fprintln(w, "Text: ", b.Label)
	_, _ = fmt.Fprintf(w, "  size:              %s\n", humanize.Bytes(uint64(textBytes)))
	_, _ = fmt.Fprintf(w, "  order:             %d\n", b.Stats.Order)
	_, _ = fmt.Fprintf(w, "  windows trained:   %s\n", humanize.Comma(int64(b.Stats.TotalFrequency)))
	_, _ = fmt.Fprintf(w, "  unique n-grams:    %s\n", humanize.Comma(int64(b.Stats.NGrams)))
	_, _ = fmt.Fprintf(w, "  contexts:          %s\n", humanize.Comma(int64(b.Stats.Contexts)))
	_, _ = fmt.Fprintf(w, "  sentence starters: %s\n", humanize.Comma(int64(b.Stats.StartingTokens)))
	_, _ = fmt.Fprintln(w)
}
