package ngram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Model is an n-gram frequency model. It is trained once and then only read:
// the first call to SampleNext seals it, and later Train calls fail with
// ErrModelSealed.
type Model struct {
	n      int
	table  Table
	sealed atomic.Bool
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// ModelOption is a function that configures a Model.
type ModelOption func(*Model)

// WithTable sets the storage backend of the frequency table.
// Default: a fresh MemoryTable.
func WithTable(t Table) ModelOption {
	return func(m *Model) { m.table = t }
}

// WithRand sets the random source used for sampling. Useful for reproducible
// output. Default: the math/rand/v2 global source.
func WithRand(r *rand.Rand) ModelOption {
	return func(m *Model) { m.rng = r }
}

// WithLogger sets the logger. Default: all logs are discarded.
func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates an untrained model over windows of n tokens.
func NewModel(n int, opts ...ModelOption) (*Model, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidParameter, n)
	}
	m := &Model{
		n:      n,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.table == nil {
		m.table = NewMemoryTable()
	}
	return m, nil
}

// N returns the window size of the model.
func (m *Model) N() int {
	return m.n
}

// Table returns the storage backend of the model.
func (m *Model) Table() Table {
	return m.table
}

// SampleNext draws the token that follows prefix, which must hold exactly
// n-1 tokens. Each member of the context family is weighted by its count;
// see chooseNext for the exact draw.
func (m *Model) SampleNext(ctx context.Context, prefix []Token) (Token, error) {
	if len(prefix) != m.n-1 {
		return "", fmt.Errorf("%w: context has %d tokens, model needs %d", ErrInvalidParameter, len(prefix), m.n-1)
	}
	m.sealed.Store(true)

	family, err := m.table.Family(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("could not load family for %s: %w", NGram(prefix), err)
	}
	if len(family) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoMatchingContext, NGram(prefix))
	}

	var total float64
	for _, e := range family {
		total += e.Count
	}
	return chooseNext(family, m.draw(int64(total))), nil
}

// draw returns a uniform integer in the closed range [0, upper].
func (m *Model) draw(upper int64) int64 {
	if m.rng == nil {
		return rand.Int64N(upper + 1)
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Int64N(upper + 1)
}
