package utils

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

func CountWords(text string) int {
	return len(strings.Fields(text))
}

func EstimateTokensFromWords(wordCount int) int {
	return int(math.Round(float64(wordCount) * 1.3))
}

// ClipWords cuts s right before its (maxWords+1)-th whitespace separated word.
// Text before the cut is returned unchanged.
func ClipWords(s string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		return "", s != ""
	}
	words := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			inWord = true
			words++
			if words > maxWords {
				return strings.TrimRightFunc(s[:i], unicode.IsSpace), true
			}
		}
	}
	return s, false
}

// Snippet returns the first maxRunes runes of s, with an ellipsis when cut.
func Snippet(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "…"
}
