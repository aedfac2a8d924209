// Package segment splits analyzed text into sentences and paragraphs.
//
// Both splitters are punctuation and blank-line heuristics. Abbreviations
// ("e.g. this"), quoted punctuation and nested clauses are not handled.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const paragraphSeparator = "\n\n"

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// SplitSentences cuts text at every whitespace run that directly follows '.', '!'
// or '?'. Fragments are trimmed and empty fragments dropped, so text without
// terminal punctuation yields a single sentence and blank text yields none.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	prev := utf8.RuneError
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && isTerminal(prev) {
			out = appendTrimmed(out, text[start:i])
			j := i
			for j < len(text) {
				r2, size2 := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(r2) {
					break
				}
				j += size2
			}
			start = j
			i = j
			prev = utf8.RuneError
			continue
		}
		prev = r
		i += size
	}
	return appendTrimmed(out, text[start:])
}

// SplitParagraphs cuts text at blank lines.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, paragraphSeparator) {
		out = appendTrimmed(out, p)
	}
	return out
}

func appendTrimmed(out []string, fragment string) []string {
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		out = append(out, fragment)
	}
	return out
}
