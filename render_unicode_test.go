package epub2pdf

import (
	"errors"
	"os"
	"testing"
)

// ---------------------------------------------------------------------------
// TestUnicodeRenderer
// ---------------------------------------------------------------------------

func TestUnicodeRenderer_Render(t *testing.T) {
	t.Parallel()

	goPath := writeGoRegular(t, t.TempDir())
	r := &unicodeRenderer{page: DefaultPageSettings(), candidates: []string{goPath}}

	html := `<html><head><title>Мир и Ελλάδα</title></head><body>
<p>Кириллица, Ελληνικά, and plain Latin text with a very long line that has to wrap across the page width more than once to exercise the wrapping code path.</p>
</body></html>`

	out, report, err := renderWith(t, r, html)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if report.title != "Мир и Ελλάδα" {
		t.Errorf("title = %q", report.title)
	}
	if report.pages != 1 {
		t.Errorf("pages = %d, want 1", report.pages)
	}
	if len(report.issues) != 0 {
		t.Errorf("issues = %v, want none", report.issues)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestUnicodeRenderer_FontMissing(t *testing.T) {
	t.Parallel()

	goPath := writeGoRegular(t, t.TempDir())
	r := &unicodeRenderer{page: DefaultPageSettings(), candidates: []string{goPath}}

	out, _, err := renderWith(t, r, "<p>日本語のテキスト</p>")
	if !errors.Is(err, ErrFontResourceMissing) {
		t.Fatalf("Render() error = %v, want ErrFontResourceMissing", err)
	}
	if errors.Is(err, ErrRender) {
		t.Error("font failures should not carry ErrRender")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no output should exist")
	}
}

func TestUnicodeRenderer_HostCJKFont(t *testing.T) {
	t.Parallel()

	const sample = "日本語のテキスト"
	if _, err := selectFont(DefaultFontPaths, []rune(sample)); err != nil {
		t.Skipf("no host font covers %q: %v", sample, err)
	}

	r := newUnicodeRenderer(DefaultPageSettings(), nil)
	_, report, err := renderWith(t, r, "<h1>第一章</h1><p>"+sample+"</p>")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if report.pages < 1 {
		t.Errorf("pages = %d", report.pages)
	}
}

func TestNewUnicodeRenderer_CandidateOrder(t *testing.T) {
	t.Parallel()

	r := newUnicodeRenderer(DefaultPageSettings(), []string{"/custom/a.ttf", "/custom/b.ttf"})
	if len(r.candidates) != 2+len(DefaultFontPaths) {
		t.Fatalf("candidates = %d, want %d", len(r.candidates), 2+len(DefaultFontPaths))
	}
	if r.candidates[0] != "/custom/a.ttf" || r.candidates[2] != DefaultFontPaths[0] {
		t.Errorf("candidates = %v, want custom fonts first", r.candidates)
	}
}
