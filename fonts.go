package epub2pdf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/image/font/sfnt"

	"github.com/alnah/go-epub2pdf/internal/fileutil"
)

// DefaultFontPaths lists the TrueType fonts searched on the host, in order,
// after the fonts passed to WithFontPaths.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/fonts-japanese-gothic.ttf",
	"/usr/share/fonts/opentype/ipafont-gothic/ipag.ttf",
	"/usr/share/fonts/truetype/ipafont-gothic/ipag.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallback.ttf",
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	`C:\Windows\Fonts\arialuni.ttf`,
}

// maxReportedRunes caps the runes listed in a FontMissingError message.
const maxReportedRunes = 8

// FontMissingError reports that no candidate font covers the document text.
// It unwraps to ErrFontResourceMissing.
type FontMissingError struct {
	Tried   []string // candidate paths that exist and were inspected
	Missing []rune   // runes absent from the closest candidate
}

func (e *FontMissingError) Error() string {
	if len(e.Tried) == 0 {
		return ErrFontResourceMissing.Error() + ": no TrueType font found"
	}
	shown := e.Missing
	if len(shown) > maxReportedRunes {
		shown = shown[:maxReportedRunes]
	}
	quoted := make([]string, len(shown))
	for i, r := range shown {
		quoted[i] = fmt.Sprintf("%q (U+%04X)", r, r)
	}
	msg := fmt.Sprintf("%v: %d fonts tried, missing %s", ErrFontResourceMissing, len(e.Tried), strings.Join(quoted, ", "))
	if extra := len(e.Missing) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" and %d more", extra)
	}
	return msg
}

func (e *FontMissingError) Unwrap() error {
	return ErrFontResourceMissing
}

// loadedFont is a font file whose cmap covers every rune of a document.
type loadedFont struct {
	path string
	data []byte
}

// selectFont returns the first candidate that covers every rune.
// Candidates that are missing, unreadable, not .ttf or fail to parse are skipped.
func selectFont(candidates []string, runes []rune) (*loadedFont, error) {
	var (
		tried   []string
		missing []rune
	)
	for _, path := range candidates {
		if !fileutil.HasExtension(path, ".ttf") {
			continue
		}
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				tried = append(tried, path)
			}
			continue
		}
		tried = append(tried, path)

		f, err := sfnt.Parse(data)
		if err != nil {
			continue
		}
		m := missingRunes(f, runes)
		if len(m) == 0 {
			return &loadedFont{path: path, data: data}, nil
		}
		if missing == nil || len(m) < len(missing) {
			missing = m
		}
	}
	return nil, &FontMissingError{Tried: tried, Missing: missing}
}

// missingRunes returns the runes f has no glyph for. Whitespace and control
// runes are never drawn and are skipped. Runes above U+FFFF count as missing
// because the embedder addresses glyphs with 16-bit codes.
func missingRunes(f *sfnt.Font, runes []rune) []rune {
	var (
		buf     sfnt.Buffer
		missing []rune
	)
	for _, r := range runes {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		if r > 0xFFFF {
			missing = append(missing, r)
			continue
		}
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

// FindFont returns the first font that covers every character of sample,
// searching extra before DefaultFontPaths. The error is a *FontMissingError.
func FindFont(sample string, extra ...string) (string, error) {
	candidates := append(append([]string{}, extra...), DefaultFontPaths...)
	f, err := selectFont(candidates, []rune(sample))
	if err != nil {
		return "", err
	}
	return f.path, nil
}
