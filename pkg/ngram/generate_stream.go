package ngram

import (
	"context"
	"log/slog"
)

// StreamResult is one item of a generation stream: either a finished sentence
// or the error that stopped the stream.
type StreamResult struct {
	Index    int
	Sentence string
	Err      error
}

// GenerateStream produces count sentences on a read-only channel, one result
// per sentence. The channel is closed once all sentences are sent, after the
// first error (which is delivered as the last result), or when the context
// is cancelled.
func (m *Model) GenerateStream(ctx context.Context, count int, opts ...GenerateOption) <-chan StreamResult {
	options := newGenerateOptions(opts)
	results := make(chan StreamResult)

	go func() {
		defer close(results)

		for i := 0; i < count; i++ {
			sentence, err := m.generateSentence(ctx, options)
			if ctx.Err() != nil {
				m.logger.DebugContext(ctx, "Generation stream cancelled by context")
				return
			}
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to generate sentence for stream",
					slog.Int("index", i),
					slog.Any("error", err),
				)
			}

			select {
			case <-ctx.Done():
				return
			case results <- StreamResult{Index: i, Sentence: sentence, Err: err}:
			}
			if err != nil {
				return
			}
		}
	}()

	return results
}
