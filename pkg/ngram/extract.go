package ngram

import "fmt"

// Extract converts sentences into n-length windows. Sentences shorter than n
// are skipped. Each kept sentence of length L yields n-1 start-padded windows,
// L-n+1 body windows and one end-padded window, in that order.
func Extract(sentences []Sentence, n int) ([]NGram, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidParameter, n)
	}

	var out []NGram
	for _, s := range sentences {
		if len(s) < n {
			continue
		}
		out = appendSentence(out, s, n)
	}
	return out, nil
}

// WindowCount reports how many windows Extract emits for a sentence of the
// given length.
func WindowCount(length, n int) int {
	if n < 1 || length < n {
		return 0
	}
	return (n - 1) + (length - n + 1) + 1
}

func appendSentence(out []NGram, s Sentence, n int) []NGram {
	// Start padding: z real tokens behind n-z start markers, z = 1..n-1.
	for z := 1; z < n; z++ {
		window := make(NGram, 0, n)
		for k := 0; k < n-z; k++ {
			window = append(window, StartMarker)
		}
		window = append(window, s[:z]...)
		out = append(out, window)
	}

	for i := 0; i+n <= len(s); i++ {
		window := make(NGram, n)
		copy(window, s[i:i+n])
		out = append(out, window)
	}

	// End padding: the last n-1 tokens followed by the end marker.
	window := make(NGram, 0, n)
	window = append(window, s[len(s)-(n-1):]...)
	window = append(window, EndMarker)
	return append(out, window)
}
