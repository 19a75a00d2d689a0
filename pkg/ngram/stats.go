package ngram

import "context"

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Order          int     `json:"order"`           // The window size n.
	NGrams         int     `json:"ngrams"`          // The number of unique n-grams.
	Contexts       int     `json:"contexts"`        // The number of unique (n-1)-token contexts.
	TotalFrequency float64 `json:"total_frequency"` // The sum of all counts; the number of trained windows.
	StartingTokens int     `json:"starting_tokens"` // The number of unique tokens that can open a sentence.
}

// Stats returns a snapshot of the model's frequency table.
func (m *Model) Stats(ctx context.Context) (ModelStats, error) {
	tableStats, err := m.table.Stats(ctx)
	if err != nil {
		return ModelStats{}, err
	}
	starters, err := m.table.Family(ctx, StartContext(m.n))
	if err != nil {
		return ModelStats{}, err
	}

	startingTokens := 0
	for _, e := range starters {
		if e.Next != EndMarker {
			startingTokens++
		}
	}

	return ModelStats{
		Order:          m.n,
		NGrams:         tableStats.NGrams,
		Contexts:       tableStats.Contexts,
		TotalFrequency: tableStats.TotalFrequency,
		StartingTokens: startingTokens,
	}, nil
}
