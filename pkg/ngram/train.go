package ngram

import (
	"context"
	"fmt"
	"log/slog"
)

// Train adds every n-gram to the frequency table: absent n-grams start at
// 1.0 and present ones grow by 1.0. Repeated calls accumulate. All n-grams
// must have length n.
func (m *Model) Train(ctx context.Context, ngrams []NGram) error {
	if m.sealed.Load() {
		return ErrModelSealed
	}
	for _, g := range ngrams {
		if len(g) != m.n {
			return fmt.Errorf("%w: n-gram %s has length %d, model needs %d", ErrInvalidParameter, g, len(g), m.n)
		}
	}

	if err := m.table.Add(ctx, ngrams); err != nil {
		return fmt.Errorf("could not store n-grams: %w", err)
	}

	m.logger.DebugContext(ctx, "Training batch stored",
		slog.Int("order", m.n),
		slog.Int("ngrams", len(ngrams)),
	)
	return nil
}

// TrainText runs the full training pipeline over one text: tokenize, extract
// windows of size n and count them. It returns the number of sentences the
// tokenizer produced and the number of windows trained.
func (m *Model) TrainText(ctx context.Context, tokenizer Tokenizer, text string) (sentences int, windows int, err error) {
	tokenized := tokenizer.Tokenize(text)
	grams, err := Extract(tokenized, m.n)
	if err != nil {
		return 0, 0, err
	}
	if err = m.Train(ctx, grams); err != nil {
		return 0, 0, err
	}

	m.logger.InfoContext(ctx, "Training completed",
		slog.Int("order", m.n),
		slog.Int("sentences_processed", len(tokenized)),
		slog.Int("ngrams_trained", len(grams)),
	)
	return len(tokenized), len(grams), nil
}
