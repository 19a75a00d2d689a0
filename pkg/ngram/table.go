package ngram

import "context"

// Entry is one member of a context family: the token that followed the
// context and how many times it did.
type Entry struct {
	Next  Token
	Count float64
}

// TableStats holds aggregated counts for a frequency table.
type TableStats struct {
	NGrams         int     // The number of unique n-grams.
	Contexts       int     // The number of unique (n-1)-token contexts.
	TotalFrequency float64 // The sum of all counts; the number of trained windows.
}

// Table is the storage behind a Model's frequency table. Counts start at 1.0
// and grow by 1.0 per occurrence; entries are never removed.
type Table interface {
	// Add counts every gram once. All grams share the same length.
	Add(ctx context.Context, grams []NGram) error
	// Family returns the entries whose context equals ctxTokens, in the order
	// their n-grams were first added. It returns an empty slice when the
	// context is unknown.
	Family(ctx context.Context, ctxTokens []Token) ([]Entry, error)
	// Count returns the count of a single n-gram, or 0 when it is absent.
	Count(ctx context.Context, gram NGram) (float64, error)
	// Stats returns aggregated counts for the whole table.
	Stats(ctx context.Context) (TableStats, error)
}
