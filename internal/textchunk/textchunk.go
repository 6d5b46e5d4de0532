// Package textchunk splits free text into bounded pieces that are each fed to
// one synthesis call.
package textchunk

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the threshold used when callers pass a non-positive limit.
const DefaultMaxChars = 120

// Split breaks text into ordered chunks of whole period-delimited sentences.
//
// Newlines become spaces and the text is cut on every '.', so abbreviations,
// decimals and ellipses split too. Sentences are appended to the current chunk
// (each followed by ". ") while the chunk length plus the sentence length stays
// below maxChars; otherwise the chunk is emitted trimmed and the sentence starts
// the next one. A sentence longer than maxChars is emitted on its own. Lengths
// are counted in characters. Blank input yields nil.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := strings.Split(strings.ReplaceAll(text, "\n", " "), ".")
	var (
		chunks  []string
		current strings.Builder
		length  int
	)
	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		length = 0
	}

	for _, s := range sentences {
		if strings.TrimSpace(s) == "" {
			continue
		}
		n := utf8.RuneCountInString(s)
		if length+n >= maxChars {
			flush()
		}
		current.WriteString(s)
		current.WriteString(". ")
		length += n + 2
	}
	flush()
	return chunks
}
