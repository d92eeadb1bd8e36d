package epub2pdf

import "strings"

// wrapText breaks line into pieces no wider than maxWidth. Breaks are greedy
// on whitespace; a token wider than maxWidth is broken between runes, which
// also handles scripts written without spaces. measure returns the width of
// a string in the current font. A single rune wider than maxWidth still gets
// its own piece.
func wrapText(line string, maxWidth float64, measure func(string) float64) []string {
	var (
		out   []string
		cur   strings.Builder
		curW  float64
		space = measure(" ")
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curW = 0
		}
	}

	for _, word := range strings.Fields(line) {
		w := measure(word)
		if cur.Len() > 0 && curW+space+w <= maxWidth {
			cur.WriteByte(' ')
			cur.WriteString(word)
			curW += space + w
			continue
		}
		flush()
		if w <= maxWidth {
			cur.WriteString(word)
			curW = w
			continue
		}
		for _, r := range word {
			rw := measure(string(r))
			if cur.Len() > 0 && curW+rw > maxWidth {
				flush()
			}
			cur.WriteRune(r)
			curW += rw
		}
	}
	flush()
	return out
}
