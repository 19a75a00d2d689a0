package ngram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGenerateSingleCandidateChain(t *testing.T) {
	ctx := context.Background()
	m := newSeededModel(t, 3)
	grams := []NGram{
		{StartMarker, StartMarker, "a"},
		{StartMarker, "a", "b"},
		{"a", "b", EndMarker},
	}
	if err := m.Train(ctx, grams); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}

	sentences, err := m.Generate(ctx, 5)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if len(sentences) != 5 {
		t.Fatalf("expected 5 sentences, got %d", len(sentences))
	}
	for _, s := range sentences {
		if s != "a b ." {
			t.Errorf("Generate() sentence = %q, want %q", s, "a b .")
		}
	}
}

func TestGenerateFromCorpus(t *testing.T) {
	ctx, m := setupTrainedModel(t, 3, "one fish two fish. red fish blue fish.")

	sentences, err := m.Generate(ctx, 20)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	// With n=3 every context has a single continuation except the start.
	for _, s := range sentences {
		if s != "one fish two fish ." && s != "red fish blue fish ." {
			t.Errorf("unexpected sentence %q", s)
		}
	}
}

func TestGenerateOutputShape(t *testing.T) {
	ctx, m := setupTrainedModel(t, 2, "I came, I saw; I conquered. Veni, vidi, vici!")

	sentences, err := m.Generate(ctx, 10, WithMaxSteps(500))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	for _, s := range sentences {
		if !strings.HasSuffix(s, " .") {
			t.Errorf("sentence %q does not end with \" .\"", s)
		}
		if strings.Contains(s, "<start>") || strings.Contains(s, "<end>") {
			t.Errorf("sentence %q leaks a marker", s)
		}
		if s != strings.ToLower(s) {
			t.Errorf("sentence %q is not lowercase", s)
		}
	}
}

func TestGenerateZeroAndNegativeCount(t *testing.T) {
	ctx, m := setupTrainedModel(t, 2, "a b.")

	sentences, err := m.Generate(ctx, 0)
	if err != nil || len(sentences) != 0 {
		t.Errorf("Generate(0) = %q, %v; want empty, nil", sentences, err)
	}
	if _, err = m.Generate(ctx, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Generate(-1) error = %v, want ErrInvalidParameter", err)
	}
}

func TestGenerateNoMatchingContext(t *testing.T) {
	ctx, m := setupTrainedModel(t, 3, "too short.")

	sentences, err := m.Generate(ctx, 3)
	if !errors.Is(err, ErrNoMatchingContext) {
		t.Fatalf("Generate() error = %v, want ErrNoMatchingContext", err)
	}
	if len(sentences) != 0 {
		t.Errorf("expected no completed sentences, got %q", sentences)
	}
}

func TestGenerateStepLimit(t *testing.T) {
	ctx := context.Background()
	m := newSeededModel(t, 2)
	// a -> a forever; the end marker is unreachable.
	if err := m.Train(ctx, []NGram{{StartMarker, "a"}, {"a", "a"}}); err != nil {
		t.Fatal(err)
	}

	_, err := m.GenerateSentence(ctx, WithMaxSteps(25))
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("GenerateSentence() error = %v, want ErrStepLimit", err)
	}
}

func TestGenerateRespectsCancellation(t *testing.T) {
	ctx := context.Background()
	m := newSeededModel(t, 2)
	if err := m.Train(ctx, []NGram{{StartMarker, "a"}, {"a", "a"}}); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := m.GenerateSentence(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("GenerateSentence() error = %v, want context.Canceled", err)
	}
}

func TestGenerationStateStep(t *testing.T) {
	ctx := context.Background()
	m := newSeededModel(t, 3)
	grams := []NGram{
		{StartMarker, StartMarker, "a"},
		{StartMarker, "a", "b"},
		{"a", "b", EndMarker},
	}
	if err := m.Train(ctx, grams); err != nil {
		t.Fatal(err)
	}

	start := NewState(3)
	first, err := start.Step(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(start.Tokens) != 0 || start.Context[1] != StartMarker {
		t.Errorf("Step modified its receiver: %+v", start)
	}
	if first.Context[0] != StartMarker || first.Context[1] != "a" || first.Done {
		t.Errorf("unexpected state after first step: %+v", first)
	}

	second, err := first.Step(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	third, err := second.Step(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if !third.Done || third.Steps != 3 {
		t.Errorf("expected done after 3 steps, got %+v", third)
	}
	if third.String() != "a b ." {
		t.Errorf("String() = %q, want %q", third.String(), "a b .")
	}

	again, err := third.Step(ctx, m)
	if err != nil || again.Steps != third.Steps {
		t.Errorf("stepping a finished state should be a no-op, got %+v, %v", again, err)
	}
}

func TestFormatSentence(t *testing.T) {
	if got := FormatSentence(nil); got != "." {
		t.Errorf("FormatSentence(nil) = %q, want %q", got, ".")
	}
	if got := FormatSentence([]Token{"well", ",", "yes"}); got != "well , yes ." {
		t.Errorf("FormatSentence() = %q", got)
	}
}

func TestGenerateUnigramModel(t *testing.T) {
	ctx, m := setupTrainedModel(t, 1, "a b. c.")

	sentences, err := m.Generate(ctx, 10, WithMaxSteps(1000))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	for _, s := range sentences {
		for _, tok := range strings.Fields(strings.TrimSuffix(s, ".")) {
			if tok != "a" && tok != "b" && tok != "c" {
				t.Errorf("unexpected token %q in %q", tok, s)
			}
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	corpus := createBenchmarkCorpus()

	for _, order := range []int{2, 3} {
		ctx, m := setupTrainedModel(b, order, corpus)
		b.Run(fmt.Sprintf("Order%d", order), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s, err := m.GenerateSentence(ctx, WithMaxSteps(1000))
				if err != nil && !errors.Is(err, ErrStepLimit) {
					b.Fatalf("GenerateSentence() failed: %v", err)
				}
				b.SetBytes(int64(len(s)))
			}
		})
	}
}
