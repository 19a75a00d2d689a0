package ngram

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenizer splits raw text into sentences of tokens. Implementations must be
// pure: the same text always yields the same sentences.
type Tokenizer interface {
	Tokenize(text string) []Sentence
}

// DefaultTokenizer is the default implementation of the Tokenizer interface.
// It lowercases the text, splits it on '.', '?' and '!', and extracts words
// (letters, digits, underscores and apostrophes) plus standalone commas and
// semicolons. Abbreviations, decimals and ellipses are not special-cased.
type DefaultTokenizer struct {
	sentenceRegex *regexp.Regexp
	tokenRegex    *regexp.Regexp
	lowercase     bool
}

// Option is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSentenceRegex sets the regex used to split text into sentence fragments.
// Default: `\.|\?|!`
func WithSentenceRegex(expr string) Option {
	return func(t *DefaultTokenizer) {
		t.sentenceRegex = regexp.MustCompile(expr)
	}
}

// WithTokenRegex sets the regex whose matches become tokens.
// Default: `[\p{L}\p{N}\p{M}_']+|[,;]`
func WithTokenRegex(expr string) Option {
	return func(t *DefaultTokenizer) {
		t.tokenRegex = regexp.MustCompile(expr)
	}
}

// WithLowercase toggles lowercasing of the input. Default: true
func WithLowercase(lower bool) Option {
	return func(t *DefaultTokenizer) {
		t.lowercase = lower
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		// Every terminator splits on its own, so "?!" yields an empty fragment.
		sentenceRegex: regexp.MustCompile(`\.|\?|!`),
		// Unicode word characters or apostrophes, OR a single comma/semicolon.
		tokenRegex: regexp.MustCompile(`[\p{L}\p{N}\p{M}_']+|[,;]`),
		lowercase:  true,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Tokenize returns one Sentence per fragment between terminators, including
// empty ones. It never fails.
func (t *DefaultTokenizer) Tokenize(text string) []Sentence {
	if t.lowercase {
		// cases.Caser is stateful, so a fresh one keeps Tokenize safe for
		// concurrent use.
		text = cases.Lower(language.Und).String(text)
	}

	fragments := t.sentenceRegex.Split(text, -1)
	sentences := make([]Sentence, 0, len(fragments))
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		words := t.tokenRegex.FindAllString(fragment, -1)
		sentence := make(Sentence, len(words))
		copy(sentence, words)
		sentences = append(sentences, sentence)
	}
	return sentences
}
