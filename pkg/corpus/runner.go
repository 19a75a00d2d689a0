package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/CTAG07/ngramgen/pkg/ngram"
)

// TableFactory creates the frequency table for one pipeline. release is
// called once the pipeline is finished with the table.
type TableFactory func(ctx context.Context) (table ngram.Table, release func(), err error)

// MemoryTables is the default TableFactory.
func MemoryTables(context.Context) (ngram.Table, func(), error) {
	return ngram.NewMemoryTable(), func() {}, nil
}

// Batch is the outcome of one pipeline. Sentences holds every sentence that
// was completed, even when Err is set.
type Batch struct {
	Label     string
	Sentences []string
	Stats     ngram.ModelStats
	Err       error
}

// Runner trains one model per Source and generates sentences from it.
type Runner struct {
	Order     int
	Sentences int
	// Workers bounds the number of texts processed at once. Values below 1
	// mean 1.
	Workers int
	// MaxSteps caps the samples drawn per sentence. 0 means no cap.
	MaxSteps int
	// Seed makes output reproducible. Each text gets its own generator
	// derived from Seed and its position. 0 uses the global source.
	Seed      uint64
	Tokenizer ngram.Tokenizer
	NewTable  TableFactory
	Logger    *slog.Logger
}

// Run processes sources on a pool of Workers goroutines and returns one Batch
// per source, in input order. A failing text does not stop the others.
func (r *Runner) Run(ctx context.Context, sources []Source) []Batch {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	batches := make([]Batch, len(sources))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				batches[i] = r.runOne(ctx, i, sources[i])
			}
		}()
	}

	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return batches
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runOne is a complete, isolated pipeline for a single text.
func (r *Runner) runOne(ctx context.Context, index int, src Source) Batch {
	batch := Batch{Label: src.Label}
	logger := r.logger().With(slog.String("text", src.Label))
	started := time.Now()

	if err := ctx.Err(); err != nil {
		batch.Err = err
		return batch
	}

	newTable := r.NewTable
	if newTable == nil {
		newTable = MemoryTables
	}
	table, release, err := newTable(ctx)
	if err != nil {
		batch.Err = fmt.Errorf("could not create frequency table: %w", err)
		return batch
	}
	defer release()

	opts := []ngram.ModelOption{ngram.WithTable(table), ngram.WithLogger(logger)}
	if r.Seed != 0 {
		opts = append(opts, ngram.WithRand(rand.New(rand.NewPCG(r.Seed, uint64(index)))))
	}
	model, err := ngram.NewModel(r.Order, opts...)
	if err != nil {
		batch.Err = err
		return batch
	}

	tokenizer := r.Tokenizer
	if tokenizer == nil {
		tokenizer = ngram.NewDefaultTokenizer()
	}
	if _, _, err = model.TrainText(ctx, tokenizer, src.Text); err != nil {
		batch.Err = fmt.Errorf("training failed: %w", err)
		return batch
	}

	if batch.Stats, err = model.Stats(ctx); err != nil {
		batch.Err = fmt.Errorf("could not read model stats: %w", err)
		return batch
	}

	batch.Sentences, batch.Err = model.Generate(ctx, r.Sentences, ngram.WithMaxSteps(r.MaxSteps))
	if batch.Err != nil {
		logger.WarnContext(ctx, "Generation stopped early",
			slog.Int("completed", len(batch.Sentences)),
			slog.Any("error", batch.Err),
		)
		return batch
	}

	logger.InfoContext(ctx, "Text processed",
		slog.Int("order", r.Order),
		slog.Int("sentences", len(batch.Sentences)),
		slog.Int("ngrams", batch.Stats.NGrams),
		slog.Duration("elapsed", time.Since(started)),
	)
	return batch
}

// Describe runs the training half of the pipeline only and reports the model
// statistics for every source.
func (r *Runner) Describe(ctx context.Context, sources []Source) []Batch {
	describer := *r
	describer.Sentences = 0
	return describer.Run(ctx, sources)
}
