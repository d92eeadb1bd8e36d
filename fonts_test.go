package epub2pdf

// Notes:
// - Fonts come from golang.org/x/image/font/gofont, written to temp files so
//   selectFont reads them like host fonts. Go Regular covers Latin, Greek
//   and Cyrillic but no CJK, which gives a deterministic "missing" case.

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// writeGoRegular writes Go Regular to dir and returns its path.
func writeGoRegular(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "goregular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o600); err != nil {
		t.Fatalf("writing font: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// TestSelectFont
// ---------------------------------------------------------------------------

func TestSelectFont_FirstCoveringCandidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	goPath := writeGoRegular(t, dir)
	garbage := filepath.Join(dir, "broken.ttf")
	if err := os.WriteFile(garbage, []byte("not a font"), 0o600); err != nil {
		t.Fatal(err)
	}
	otf := filepath.Join(dir, "other.otf")
	if err := os.WriteFile(otf, goregular.TTF, 0o600); err != nil {
		t.Fatal(err)
	}

	candidates := []string{filepath.Join(dir, "absent.ttf"), otf, garbage, goPath}
	got, err := selectFont(candidates, []rune("Ελληνικά Кириллица café\n"))
	if err != nil {
		t.Fatalf("selectFont() error = %v", err)
	}
	if got.path != goPath {
		t.Errorf("path = %s, want %s", got.path, goPath)
	}
	if len(got.data) != len(goregular.TTF) {
		t.Errorf("data length = %d, want %d", len(got.data), len(goregular.TTF))
	}
}

func TestSelectFont_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	goPath := writeGoRegular(t, dir)

	_, err := selectFont([]string{filepath.Join(dir, "absent.ttf"), goPath}, []rune("Hello 日本"))
	if !errors.Is(err, ErrFontResourceMissing) {
		t.Fatalf("selectFont() error = %v, want ErrFontResourceMissing", err)
	}

	var fm *FontMissingError
	if !errors.As(err, &fm) {
		t.Fatalf("error %T is not *FontMissingError", err)
	}
	if !slices.Equal(fm.Tried, []string{goPath}) {
		t.Errorf("Tried = %v, want only the existing font", fm.Tried)
	}
	if !slices.Equal(fm.Missing, []rune("日本")) {
		t.Errorf("Missing = %q, want %q", fm.Missing, "日本")
	}
}

func TestSelectFont_NoCandidates(t *testing.T) {
	t.Parallel()

	_, err := selectFont(nil, []rune("a"))
	var fm *FontMissingError
	if !errors.As(err, &fm) || len(fm.Tried) != 0 {
		t.Fatalf("selectFont(nil) error = %v, want FontMissingError with nothing tried", err)
	}
	if !strings.Contains(err.Error(), "no TrueType font found") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestSelectFont_SupplementaryPlaneIsMissing(t *testing.T) {
	t.Parallel()

	goPath := writeGoRegular(t, t.TempDir())
	_, err := selectFont([]string{goPath}, []rune("clef 𝄞"))

	var fm *FontMissingError
	if !errors.As(err, &fm) || !slices.Equal(fm.Missing, []rune("𝄞")) {
		t.Errorf("selectFont() error = %v, want 𝄞 missing", err)
	}
}

func TestSelectFont_WhitespaceAndControlIgnored(t *testing.T) {
	t.Parallel()

	goPath := writeGoRegular(t, t.TempDir())
	if _, err := selectFont([]string{goPath}, []rune("a \t \u0007b")); err != nil {
		t.Errorf("selectFont() error = %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestFontMissingError
// ---------------------------------------------------------------------------

func TestFontMissingError_Message(t *testing.T) {
	t.Parallel()

	err := &FontMissingError{
		Tried:   []string{"/a.ttf", "/b.ttf"},
		Missing: []rune("一二三四五六七八九十"),
	}
	msg := err.Error()
	for _, want := range []string{"2 fonts tried", "U+4E00", "and 2 more"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want substring %q", msg, want)
		}
	}
	if strings.Contains(msg, "U+5341") {
		t.Errorf("Error() = %q should not list runes past the cap", msg)
	}
}

// ---------------------------------------------------------------------------
// TestFindFont - Exported lookup used by diagnostics
// ---------------------------------------------------------------------------

func TestFindFont(t *testing.T) {
	t.Parallel()

	goPath := writeGoRegular(t, t.TempDir())

	got, err := FindFont("Ελληνικά", goPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != goPath {
		t.Errorf("FindFont() = %q, want %q", got, goPath)
	}
}

func TestFindFont_Missing(t *testing.T) {
	t.Parallel()

	// U+10000 is outside the 16-bit range every candidate is limited to.
	_, err := FindFont("\U00010000", writeGoRegular(t, t.TempDir()))
	var fm *FontMissingError
	if !errors.As(err, &fm) {
		t.Fatalf("expected *FontMissingError, got %v", err)
	}
	if len(fm.Tried) == 0 {
		t.Error("Tried should include the extra candidate")
	}
}
