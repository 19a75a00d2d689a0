package ngram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	maxSteps int
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in Generate, GenerateSentence and GenerateStream.
type GenerateOption func(*generateOptions)

// WithMaxSteps caps the number of samples drawn for a single sentence. A
// sentence that has not reached the end marker after n samples fails with
// ErrStepLimit. A value of 0 disables the cap, which is the default: a model
// whose transitions loop without reaching the end marker then never returns,
// so services should always set one.
func WithMaxSteps(n int) GenerateOption {
	return func(o *generateOptions) { o.maxSteps = n }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{maxSteps: 0}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// GenerationState is the trailing context of a sentence under construction
// together with the tokens emitted so far. Step returns a new state and never
// modifies its receiver.
type GenerationState struct {
	Context []Token
	Tokens  []Token
	Steps   int
	Done    bool
}

// NewState returns the initial state for a model of window size n: n-1 start
// markers and no tokens.
func NewState(n int) GenerationState {
	return GenerationState{Context: StartContext(n)}
}

// Step samples one token. Drawing EndMarker marks the state Done; any other
// token is appended and shifted into the context.
func (s GenerationState) Step(ctx context.Context, m *Model) (GenerationState, error) {
	if s.Done {
		return s, nil
	}
	next, err := m.SampleNext(ctx, s.Context)
	if err != nil {
		return s, err
	}

	out := GenerationState{Steps: s.Steps + 1}
	if next == EndMarker {
		out.Context = s.Context
		out.Tokens = s.Tokens
		out.Done = true
		return out, nil
	}

	out.Tokens = make([]Token, len(s.Tokens), len(s.Tokens)+1)
	copy(out.Tokens, s.Tokens)
	out.Tokens = append(out.Tokens, next)

	out.Context = make([]Token, len(s.Context))
	if len(s.Context) > 0 {
		copy(out.Context, s.Context[1:])
		out.Context[len(out.Context)-1] = next
	}
	return out, nil
}

// String renders the tokens the way generated sentences are printed: every
// token followed by a single space, then a period.
func (s GenerationState) String() string {
	return FormatSentence(s.Tokens)
}

// FormatSentence joins tokens with single spaces and terminates them with a
// literal period, e.g. "a b ." No capitalization or punctuation spacing is
// applied.
func FormatSentence(tokens []Token) string {
	var builder strings.Builder
	for _, tok := range tokens {
		builder.WriteString(tok)
		builder.WriteByte(' ')
	}
	builder.WriteByte('.')
	return builder.String()
}

// GenerateSentence produces one sentence, starting from the pure start
// context and stopping when the end marker is drawn.
func (m *Model) GenerateSentence(ctx context.Context, opts ...GenerateOption) (string, error) {
	return m.generateSentence(ctx, newGenerateOptions(opts))
}

// Generate produces count sentences. If a sentence fails, the sentences
// completed before it are returned together with the error.
func (m *Model) Generate(ctx context.Context, count int, opts ...GenerateOption) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidParameter, count)
	}
	options := newGenerateOptions(opts)

	sentences := make([]string, 0, count)
	for i := 0; i < count; i++ {
		sentence, err := m.generateSentence(ctx, options)
		if err != nil {
			return sentences, fmt.Errorf("sentence %d: %w", i+1, err)
		}
		sentences = append(sentences, sentence)
	}
	return sentences, nil
}

// generateSentence contains the main loop for generating a sentence.
func (m *Model) generateSentence(ctx context.Context, options *generateOptions) (string, error) {
	state := NewState(m.n)
	for !state.Done {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if options.maxSteps > 0 && state.Steps >= options.maxSteps {
			m.logger.DebugContext(ctx, "Generation stopped by step limit",
				slog.Int("order", m.n),
				slog.Int("max_steps", options.maxSteps),
				slog.Int("generated_length", len(state.Tokens)),
			)
			return "", fmt.Errorf("%w: no end marker after %d steps", ErrStepLimit, options.maxSteps)
		}

		var err error
		state, err = state.Step(ctx, m)
		if err != nil {
			return "", err
		}
	}

	m.logger.DebugContext(ctx, "Generation terminated by end marker",
		slog.Int("order", m.n),
		slog.Int("generated_length", len(state.Tokens)),
	)
	return state.String(), nil
}

// chooseNext walks the family in order, subtracting each count from r, and
// returns the first token for which r drops to zero or below. r is drawn from
// the closed range [0, total], so r = 0 also lands on the first entry: it is
// picked with weight count+1 out of total+1 instead of count out of total.
// Do not normalize this boundary.
func chooseNext(family []Entry, r int64) Token {
	remaining := float64(r)
	for _, e := range family {
		remaining -= e.Count
		if remaining <= 0 {
			return e.Next
		}
	}
	// Only reachable if counts do not sum to the drawn total.
	return family[len(family)-1].Next
}
