package report

import (
	"strings"
	"unicode/utf8"
)

// Wrap fills lines of at most width runes greedily. Whitespace runs collapse
// to one space and words longer than width are split across lines. Unlike
// Python's textwrap it never breaks after hyphens.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}

	var (
		lines []string
		line  strings.Builder
		n     int
	)
	flush := func() {
		if n > 0 {
			lines = append(lines, line.String())
		}
		line.Reset()
		n = 0
	}

	for _, word := range strings.Fields(text) {
		wn := utf8.RuneCountInString(word)
		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+wn <= width {
			if sep == 1 {
				line.WriteByte(' ')
			}
			line.WriteString(word)
			n += sep + wn
			continue
		}
		if wn <= width {
			flush()
			line.WriteString(word)
			n = wn
			continue
		}

		// Long word: use what is left of the current line, then full lines.
		runes := []rune(word)
		if room := width - n - sep; room > 0 {
			if sep == 1 {
				line.WriteByte(' ')
			}
			line.WriteString(string(runes[:room]))
			n += sep + room
			runes = runes[room:]
		}
		for len(runes) > 0 {
			flush()
			take := min(width, len(runes))
			line.WriteString(string(runes[:take]))
			n = take
			runes = runes[take:]
		}
	}
	flush()
	return lines
}
