package report

import (
	"strings"
	"unicode/utf8"
)

// Split cuts text into chunks of at most limit UTF-16 code units, the unit
// chat message limits are counted in. Cuts fall on line boundaries; a
// single line longer than limit is cut inside the line. Joining the chunks
// gives back text. limit <= 0 disables splitting.
func Split(text string, limit int) []string {
	if limit <= 0 || units(text) <= limit {
		return []string{text}
	}

	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		u := units(line)
		if n+u > limit {
			flush()
		}
		for u > limit {
			head, rest := cut(line, limit)
			out = append(out, head)
			line, u = rest, units(rest)
		}
		cur.WriteString(line)
		n += u
	}
	flush()
	return out
}

// cut returns the longest prefix of s within limit units and the rest.
// It does not end the prefix on a backslash so an escape stays whole.
// At least one rune is always taken.
func cut(s string, limit int) (string, string) {
	n, end := 0, 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		w := runeUnits(r)
		if n+w > limit && end > 0 {
			break
		}
		n += w
		end += size
	}
	if end > 1 && s[end-1] == '\\' {
		end--
	}
	return s[:end], s[end:]
}

func units(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
