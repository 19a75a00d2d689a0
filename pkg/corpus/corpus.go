// Package corpus loads text files and runs one n-gram pipeline per text.
// Texts never share a model: every pipeline owns its table and random source,
// so independent texts can be processed in parallel.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrNotUTF8 is returned by LoadFile for files that are not valid UTF-8.
var ErrNotUTF8 = errors.New("file is not valid UTF-8")

// Source is one input text and the label it is reported under.
type Source struct {
	Label string
	Text  string
}

// LoadFile reads a UTF-8 text file. Newlines are replaced by spaces so that
// line wrapping never splits a sentence. The label is the path.
func LoadFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewSource(path, string(data))
}

// NewSource validates text and replaces its line breaks with spaces.
func NewSource(label, text string) (Source, error) {
	if !utf8.ValidString(text) {
		return Source{}, fmt.Errorf("%s: %w", label, ErrNotUTF8)
	}
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return Source{Label: label, Text: text}, nil
}

// LoadFiles loads every path in order and stops at the first failure.
func LoadFiles(paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		src, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
