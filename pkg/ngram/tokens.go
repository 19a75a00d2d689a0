package ngram

import "strings"

const (
	// StartMarker pads the beginning of every sentence.
	StartMarker Token = "<start>"
	// EndMarker closes every sentence. Drawing it ends generation.
	EndMarker Token = "<end>"
)

// keySeparator joins tokens into map keys. Tokens never contain it.
const keySeparator = "\x1f"

// Token is a single lowercase word, a standalone comma or semicolon, or one
// of the two reserved markers.
type Token = string

// Sentence is the ordered list of tokens found between two sentence
// terminators.
type Sentence []Token

// NGram is a fixed-length window of tokens. Two NGrams are equal when their
// Keys are equal.
type NGram []Token

// Key returns the structural key of the n-gram, suitable for use in maps.
func (g NGram) Key() string {
	return joinKey(g)
}

// Context returns the first len(g)-1 tokens.
func (g NGram) Context() []Token {
	if len(g) == 0 {
		return nil
	}
	return g[:len(g)-1]
}

// Last returns the predicted token, the final element of the window.
func (g NGram) Last() Token {
	if len(g) == 0 {
		return ""
	}
	return g[len(g)-1]
}

// String renders the n-gram as a space separated tuple, for logs and errors.
func (g NGram) String() string {
	return "(" + strings.Join(g, ", ") + ")"
}

// StartContext returns the n-1 start markers every sentence begins from.
func StartContext(n int) []Token {
	if n <= 1 {
		return []Token{}
	}
	ctx := make([]Token, n-1)
	for i := range ctx {
		ctx[i] = StartMarker
	}
	return ctx
}

func joinKey(tokens []Token) string {
	return strings.Join(tokens, keySeparator)
}
