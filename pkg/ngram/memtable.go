package ngram

import "context"

// familyRef locates an n-gram inside the families index.
type familyRef struct {
	context string
	pos     int
}

// MemoryTable is a map-backed Table. The context index is maintained while
// adding, so a Family lookup is a single map probe. It is not safe for
// concurrent writes; concurrent reads after training are fine.
type MemoryTable struct {
	grams    map[string]familyRef
	families map[string][]Entry
	total    float64
}

// NewMemoryTable returns an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{
		grams:    make(map[string]familyRef),
		families: make(map[string][]Entry),
	}
}

// Add increments every gram by 1.0, inserting it at 1.0 if absent.
func (t *MemoryTable) Add(_ context.Context, grams []NGram) error {
	for _, g := range grams {
		key := g.Key()
		if ref, ok := t.grams[key]; ok {
			t.families[ref.context][ref.pos].Count += 1.0
		} else {
			ctxKey := joinKey(g.Context())
			t.grams[key] = familyRef{context: ctxKey, pos: len(t.families[ctxKey])}
			t.families[ctxKey] = append(t.families[ctxKey], Entry{Next: g.Last(), Count: 1.0})
		}
		t.total += 1.0
	}
	return nil
}

// Family returns a copy of the entries that follow ctxTokens.
func (t *MemoryTable) Family(_ context.Context, ctxTokens []Token) ([]Entry, error) {
	family := t.families[joinKey(ctxTokens)]
	out := make([]Entry, len(family))
	copy(out, family)
	return out, nil
}

// Count returns the count of gram, or 0 when it was never added.
func (t *MemoryTable) Count(_ context.Context, gram NGram) (float64, error) {
	ref, ok := t.grams[gram.Key()]
	if !ok {
		return 0, nil
	}
	return t.families[ref.context][ref.pos].Count, nil
}

// Stats returns the number of n-grams, contexts and the total frequency.
func (t *MemoryTable) Stats(_ context.Context) (TableStats, error) {
	return TableStats{
		NGrams:         len(t.grams),
		Contexts:       len(t.families),
		TotalFrequency: t.total,
	}, nil
}
