package epub2pdf

// Notes:
// - Tests Converter.Convert with mocked stages (mockHTMLConverter,
//   mockRenderer, mockEngine) to isolate pipeline logic: stage order,
//   error classification, teardown on every exit path.
// - Every converter gets its own WithTempDir so "no files left behind" can
//   be asserted by listing that directory after the job.
// - End-to-end tests use the built-in EPUB converter and the text backend,
//   which need neither pandoc nor a browser.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestConverter builds a Converter whose stages are all mocks unless
// opts replace them. It returns the temp root used for workspaces.
func newTestConverter(t *testing.T, opts ...Option) (*Converter, string) {
	t.Helper()
	root := t.TempDir()
	base := []Option{
		WithTempDir(root),
		withHTMLConverterImpl(&mockHTMLConverter{}),
		withEngine(&mockEngine{}),
	}
	c, err := NewConverter(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, root
}

func okRenderer(t *testing.T) *mockRenderer {
	return &mockRenderer{pdf: samplePDF(t), report: &renderReport{title: "Mock Book"}}
}

var testEPUB = []byte("PK\x03\x04 not inspected by mocks")

// ---------------------------------------------------------------------------
// TestNewConverter - Option validation
// ---------------------------------------------------------------------------

func TestNewConverter_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{
			name:    "unknown backend",
			opts:    []Option{WithBackend("pdfkit")},
			wantErr: ErrUnknownBackend,
		},
		{
			name:    "non-positive max input size",
			opts:    []Option{WithMaxInputSize(0)},
			wantErr: ErrInvalidMaxInputSize,
		},
		{
			name:    "invalid page size",
			opts:    []Option{WithPage(&PageSettings{Size: "tabloid"})},
			wantErr: ErrInvalidPageSize,
		},
		{
			name:    "invalid margin",
			opts:    []Option{WithPage(&PageSettings{Margin: 9})},
			wantErr: ErrInvalidMargin,
		},
		{
			name:    "unknown style",
			opts:    []Option{WithStyle("neon")},
			wantErr: ErrStyleLoad,
		},
		{
			name:    "missing style file",
			opts:    []Option{WithStyle("./does/not/exist.css")},
			wantErr: ErrStyleLoad,
		},
		{
			name:    "asset path is not a directory",
			opts:    []Option{WithAssetPath("/nonexistent/epub2pdf/assets")},
			wantErr: ErrInvalidAssetPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := []Option{withHTMLConverterImpl(&mockHTMLConverter{}), withEngine(&mockEngine{})}
			_, err := NewConverter(append(base, tt.opts...)...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewConverter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewConverter_UnknownConverterAndEngine(t *testing.T) {
	t.Parallel()

	_, err := NewConverter(WithHTMLConverter("calibre"), withEngine(&mockEngine{}))
	if !errors.Is(err, ErrUnknownConverter) {
		t.Errorf("error = %v, want ErrUnknownConverter", err)
	}

	_, err = NewConverter(WithBrowserEngine("webkit"), withHTMLConverterImpl(&mockHTMLConverter{}))
	if !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("error = %v, want ErrUnknownEngine", err)
	}
}

func TestNewConverter_Defaults(t *testing.T) {
	t.Parallel()

	c, err := NewConverter(withEngine(&mockEngine{}))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	defer c.Close()

	if c.Backend() != DefaultBackend {
		t.Errorf("Backend() = %q, want %q", c.Backend(), DefaultBackend)
	}
	if _, ok := c.converter.(*pandocConverter); !ok {
		t.Errorf("default converter = %T, want *pandocConverter", c.converter)
	}
	if !strings.Contains(c.css, "page-break-before") {
		t.Error("default style should be the embedded print stylesheet")
	}
	if c.cfg.timeout != defaultTimeout || c.cfg.conversionTimeout != defaultConversionTimeout {
		t.Errorf("timeouts = %v/%v, want %v/%v", c.cfg.timeout, c.cfg.conversionTimeout, defaultTimeout, defaultConversionTimeout)
	}
}

func TestNewConverter_BuiltinAndRawStyle(t *testing.T) {
	t.Parallel()

	c, err := NewConverter(
		WithHTMLConverter(ConverterBuiltin),
		WithStyle("body { color: navy; }"),
		withEngine(&mockEngine{}),
	)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	defer c.Close()

	if _, ok := c.converter.(*epubConverter); !ok {
		t.Errorf("converter = %T, want *epubConverter", c.converter)
	}
	if c.css != "body { color: navy; }" {
		t.Errorf("css = %q, want raw CSS", c.css)
	}
}

func TestNewConverter_StyleFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.css")
	if err := os.WriteFile(path, []byte("p { margin: 0; }"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := NewConverter(WithStyle(path), withEngine(&mockEngine{}))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	defer c.Close()

	if c.css != "p { margin: 0; }" {
		t.Errorf("css = %q", c.css)
	}
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	for _, opt := range []struct {
		name string
		fn   func(time.Duration) Option
	}{
		{"WithTimeout", WithTimeout},
		{"WithConversionTimeout", WithConversionTimeout},
	} {
		t.Run(opt.name, func(t *testing.T) {
			t.Parallel()

			defer func() {
				if recover() == nil {
					t.Errorf("%s(0) should panic", opt.name)
				}
			}()
			opt.fn(0)
		})
	}
}

// ---------------------------------------------------------------------------
// TestResolvePage - Partial page settings
// ---------------------------------------------------------------------------

func TestResolvePage(t *testing.T) {
	t.Parallel()

	got, err := resolvePage(&PageSettings{Size: "Letter", FontSize: 10})
	if err != nil {
		t.Fatalf("resolvePage() error = %v", err)
	}
	want := &PageSettings{Size: "Letter", Orientation: OrientationPortrait, Margin: DefaultMargin, FontSize: 10}
	if *got != *want {
		t.Errorf("resolvePage() = %+v, want %+v", got, want)
	}

	got, err = resolvePage(nil)
	if err != nil || *got != *DefaultPageSettings() {
		t.Errorf("resolvePage(nil) = %+v, %v; want defaults", got, err)
	}

	if _, err := resolvePage(&PageSettings{Orientation: "diagonal"}); !errors.Is(err, ErrInvalidOrientation) {
		t.Errorf("resolvePage(bad orientation) error = %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestConvert - Outcomes and teardown
// ---------------------------------------------------------------------------

func TestConvert_TeardownOnSuccess(t *testing.T) {
	t.Parallel()

	r := okRenderer(t)
	c, root := newTestConverter(t, WithBackend(BackendText), withRenderer(BackendText, r))

	res, err := c.Convert(context.Background(), Input{Filename: "uploads/My Book.epub", Data: testEPUB})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if res.Filename != "My Book.pdf" {
		t.Errorf("Filename = %q, want %q", res.Filename, "My Book.pdf")
	}
	if res.MediaType != MediaTypePDF {
		t.Errorf("MediaType = %q, want %q", res.MediaType, MediaTypePDF)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
	if res.Title != "Mock Book" {
		t.Errorf("Title = %q, want %q", res.Title, "Mock Book")
	}
	if res.Backend != BackendText {
		t.Errorf("Backend = %q, want %q", res.Backend, BackendText)
	}
	if !bytes.HasPrefix(res.PDF, []byte("%PDF-")) {
		t.Error("PDF should start with %PDF-")
	}
	if res.Warnings != nil {
		t.Errorf("Warnings = %v, want nil", res.Warnings)
	}

	assertEmptyDir(t, root)
	if _, err := os.Stat(r.outputPath); !os.IsNotExist(err) {
		t.Errorf("output %s should be removed after delivery", r.outputPath)
	}
}

func TestConvert_ExactlyOneOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     Input
		converter *mockHTMLConverter
		renderer  func(t *testing.T) *mockRenderer
		wantErr   bool
	}{
		{
			name:      "success",
			input:     Input{Filename: "a.epub", Data: testEPUB},
			converter: &mockHTMLConverter{},
			renderer:  okRenderer,
		},
		{
			name:      "empty input",
			input:     Input{Filename: "a.epub"},
			converter: &mockHTMLConverter{},
			renderer:  okRenderer,
			wantErr:   true,
		},
		{
			name:      "conversion failure",
			input:     Input{Filename: "a.epub", Data: testEPUB},
			converter: &mockHTMLConverter{err: ErrConversion},
			renderer:  okRenderer,
			wantErr:   true,
		},
		{
			name:      "render failure",
			input:     Input{Filename: "a.epub", Data: testEPUB},
			converter: &mockHTMLConverter{},
			renderer: func(t *testing.T) *mockRenderer {
				return &mockRenderer{err: errors.New("layout exploded")}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, root := newTestConverter(t,
				WithBackend(BackendText),
				withHTMLConverterImpl(tt.converter),
				withRenderer(BackendText, tt.renderer(t)),
			)

			res, err := c.Convert(context.Background(), tt.input)
			if (res == nil) == (err == nil) {
				t.Fatalf("Convert() = (%v, %v), want exactly one non-nil", res, err)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Convert() error = %v, wantErr %v", err, tt.wantErr)
			}
			assertEmptyDir(t, root)
		})
	}
}

func TestConvert_ConversionFailureSkipsRender(t *testing.T) {
	t.Parallel()

	hc := &mockHTMLConverter{err: fmt.Errorf("%w: pandoc: unknown format", ErrConversion), partial: true}
	r := okRenderer(t)
	c, root := newTestConverter(t, WithBackend(BackendText), withHTMLConverterImpl(hc), withRenderer(BackendText, r))

	res, err := c.Convert(context.Background(), Input{Filename: "a.epub", Data: testEPUB})
	if res != nil {
		t.Fatal("Convert() should return nil result on failure")
	}
	if !errors.Is(err, ErrConversion) {
		t.Errorf("error = %v, want ErrConversion", err)
	}
	if StageOf(err) != StageConversion {
		t.Errorf("StageOf() = %v, want %v", StageOf(err), StageConversion)
	}
	if r.callCount() != 0 {
		t.Errorf("renderer called %d times, want 0", r.callCount())
	}
	assertEmptyDir(t, root)
}

func TestConvert_ConverterErrorWrappedAsConversion(t *testing.T) {
	t.Parallel()

	hc := &mockHTMLConverter{err: errors.New("zip: not a valid zip file")}
	c, _ := newTestConverter(t, withHTMLConverterImpl(hc))

	_, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if !errors.Is(err, ErrConversion) {
		t.Errorf("error = %v, want ErrConversion", err)
	}
}

func TestConvert_RenderFailure(t *testing.T) {
	t.Parallel()

	r := &mockRenderer{pdf: []byte("%PDF-1.7 partial"), err: errors.New("out of memory"), writeFirst: true}
	c, root := newTestConverter(t, WithBackend(BackendText), withRenderer(BackendText, r))

	_, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if !errors.Is(err, ErrRender) {
		t.Errorf("error = %v, want ErrRender", err)
	}
	if StageOf(err) != StageRendering {
		t.Errorf("StageOf() = %v, want %v", StageOf(err), StageRendering)
	}
	if _, statErr := os.Stat(r.outputPath); !os.IsNotExist(statErr) {
		t.Errorf("partial output %s should not exist", r.outputPath)
	}
	assertEmptyDir(t, root)
}

func TestConvert_InvalidPDFIsRenderFailure(t *testing.T) {
	t.Parallel()

	r := &mockRenderer{pdf: []byte("definitely not a pdf")}
	c, root := newTestConverter(t, WithBackend(BackendText), withRenderer(BackendText, r))

	_, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if !errors.Is(err, ErrRender) || !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("error = %v, want ErrRender and ErrInvalidPDF", err)
	}
	assertEmptyDir(t, root)
}

func TestConvert_FontMissingStaysDistinct(t *testing.T) {
	t.Parallel()

	r := &mockRenderer{err: &FontMissingError{Tried: []string{"/fonts/a.ttf"}, Missing: []rune{'猫'}}}
	c, _ := newTestConverter(t, WithBackend(BackendUnicode), withRenderer(BackendUnicode, r))

	_, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if !errors.Is(err, ErrFontResourceMissing) {
		t.Errorf("error = %v, want ErrFontResourceMissing", err)
	}
	if errors.Is(err, ErrRender) {
		t.Error("font failures should not be classified as ErrRender")
	}
	var fm *FontMissingError
	if !errors.As(err, &fm) || len(fm.Tried) != 1 {
		t.Errorf("errors.As(*FontMissingError) failed for %v", err)
	}
}

func TestConvert_PartialRenderWarnings(t *testing.T) {
	t.Parallel()

	r := &mockRenderer{pdf: samplePDF(t), report: &renderReport{issues: []RenderIssue{
		{Kind: IssueImage, Detail: "media/missing.png"},
		{Kind: IssueCSS, Detail: "-epub-writing-mode: vertical-rl"},
	}}}
	c, _ := newTestConverter(t, withRenderer(BackendHTML, r))

	res, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if res.Warnings == nil {
		t.Fatal("Warnings should be set")
	}
	if !errors.Is(res.Warnings, ErrRenderPartial) {
		t.Error("Warnings should match ErrRenderPartial")
	}
	if len(res.Warnings.Issues) != 2 {
		t.Errorf("Issues = %v, want 2", res.Warnings.Issues)
	}
	if len(res.PDF) == 0 {
		t.Error("PDF should still be delivered")
	}
}

func TestConvert_PanicRecovered(t *testing.T) {
	t.Parallel()

	r := &mockRenderer{panicMsg: "renderer bug"}
	c, root := newTestConverter(t, WithBackend(BackendText), withRenderer(BackendText, r))

	res, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if res != nil || err == nil {
		t.Fatalf("Convert() = (%v, %v), want recovered error", res, err)
	}
	if !strings.Contains(err.Error(), "renderer bug") {
		t.Errorf("error = %v, want panic message", err)
	}
	assertEmptyDir(t, root)

	// The next job is unaffected.
	r.panicMsg = ""
	r.pdf = samplePDF(t)
	if _, err := c.Convert(context.Background(), Input{Data: testEPUB}); err != nil {
		t.Errorf("Convert() after panic error = %v", err)
	}
}

func TestConvert_IntakeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   Input
		wantErr error
	}{
		{"empty data", Input{Filename: "a.epub"}, ErrEmptyInput},
		{"too large", Input{Data: bytes.Repeat([]byte("x"), 64)}, ErrInputTooLarge},
		{"unknown backend override", Input{Data: testEPUB, Backend: "ascii-art"}, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hc := &mockHTMLConverter{}
			c, root := newTestConverter(t, WithMaxInputSize(32), withHTMLConverterImpl(hc))

			_, err := c.Convert(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if StageOf(err) != StageIntake {
				t.Errorf("StageOf() = %v, want intake", StageOf(err))
			}
			if hc.callCount() != 0 {
				t.Error("converter should not run after an intake failure")
			}
			assertEmptyDir(t, root)
		})
	}
}

func TestConvert_ConversionTimeout(t *testing.T) {
	t.Parallel()

	hc := &mockHTMLConverter{block: true}
	c, root := newTestConverter(t, withHTMLConverterImpl(hc), WithConversionTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Convert(context.Background(), Input{Data: testEPUB})
	if !errors.Is(err, ErrConversion) {
		t.Errorf("error = %v, want ErrConversion", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded in chain", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Convert() took %v, timeout not enforced", elapsed)
	}
	assertEmptyDir(t, root)
}

func TestConvert_CancelledContext(t *testing.T) {
	t.Parallel()

	hc := &mockHTMLConverter{}
	c, root := newTestConverter(t, withHTMLConverterImpl(hc))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Convert(ctx, Input{Data: testEPUB})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if hc.callCount() != 0 {
		t.Error("converter should not run with a cancelled context")
	}
	assertEmptyDir(t, root)
}

func TestConvert_BackendOverride(t *testing.T) {
	t.Parallel()

	text := okRenderer(t)
	unicode := okRenderer(t)
	c, _ := newTestConverter(t,
		WithBackend(BackendText),
		withRenderer(BackendText, text),
		withRenderer(BackendUnicode, unicode),
	)

	res, err := c.Convert(context.Background(), Input{Data: testEPUB, Backend: BackendUnicode})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if res.Backend != BackendUnicode {
		t.Errorf("Backend = %q, want unicode", res.Backend)
	}
	if text.callCount() != 0 || unicode.callCount() != 1 {
		t.Errorf("calls text=%d unicode=%d, want 0 and 1", text.callCount(), unicode.callCount())
	}
}

func TestConvert_InputReachesConverterVerbatim(t *testing.T) {
	t.Parallel()

	hc := &mockHTMLConverter{}
	c, _ := newTestConverter(t, withHTMLConverterImpl(hc), withRenderer(BackendHTML, okRenderer(t)))

	data := []byte("\x00\x01 raw bytes \xff")
	if _, err := c.Convert(context.Background(), Input{Data: data}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !bytes.Equal(hc.epubSeen, data) {
		t.Errorf("converter saw %q, want %q", hc.epubSeen, data)
	}
}

func TestConvert_Closed(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{}
	r := okRenderer(t)
	c, err := NewConverter(withHTMLConverterImpl(&mockHTMLConverter{}), withEngine(engine), withRenderer(BackendHTML, r))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !engine.closed {
		t.Error("Close() should close the engine")
	}
	if r.closed != 1 {
		t.Errorf("injected renderer closed %d times, want 1", r.closed)
	}

	if _, err := c.Convert(context.Background(), Input{Data: testEPUB}); !errors.Is(err, ErrClosed) {
		t.Errorf("Convert() after Close error = %v, want ErrClosed", err)
	}
}

func TestConvert_ConcurrentJobs(t *testing.T) {
	t.Parallel()

	c, root := newTestConverter(t, withRenderer(BackendHTML, okRenderer(t)))

	const jobs = 8
	var wg sync.WaitGroup
	errs := make(chan error, jobs)
	for i := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Convert(context.Background(), Input{Filename: fmt.Sprintf("b%d.epub", i), Data: testEPUB})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Convert() error = %v", err)
		}
	}
	assertEmptyDir(t, root)
}

func TestConvert_LogsJobLifecycle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, _ := newTestConverter(t, WithLogger(logger), withRenderer(BackendHTML, okRenderer(t)))

	if _, err := c.Convert(context.Background(), Input{Data: testEPUB}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"job_id=", "backend=html", "stage=conversion", "job finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

// ---------------------------------------------------------------------------
// TestConvertFile
// ---------------------------------------------------------------------------

func TestConvertFile(t *testing.T) {
	t.Parallel()

	c, _ := newTestConverter(t, WithMaxInputSize(1024), withRenderer(BackendText, okRenderer(t)))
	dir := t.TempDir()

	small := filepath.Join(dir, "small.epub")
	if err := os.WriteFile(small, testEPUB, 0o600); err != nil {
		t.Fatal(err)
	}
	big := filepath.Join(dir, "big.epub")
	if err := os.WriteFile(big, bytes.Repeat([]byte("x"), 2048), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := c.ConvertFile(context.Background(), small, BackendText)
	if err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}
	if res.Filename != "small.pdf" {
		t.Errorf("Filename = %q, want small.pdf", res.Filename)
	}

	if _, err := c.ConvertFile(context.Background(), big, ""); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("ConvertFile(big) error = %v, want ErrInputTooLarge", err)
	}
	if _, err := c.ConvertFile(context.Background(), filepath.Join(dir, "none.epub"), ""); !errors.Is(err, ErrIO) {
		t.Errorf("ConvertFile(missing) error = %v, want ErrIO", err)
	}
}

// ---------------------------------------------------------------------------
// End-to-end: built-in converter + text backend
// ---------------------------------------------------------------------------

func newBuiltinConverter(t *testing.T, opts ...Option) (*Converter, string) {
	t.Helper()
	root := t.TempDir()
	base := []Option{WithTempDir(root), WithHTMLConverter(ConverterBuiltin), withEngine(&mockEngine{})}
	c, err := NewConverter(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, root
}

func TestConvert_EndToEnd_TextBackend(t *testing.T) {
	t.Parallel()

	c, root := newBuiltinConverter(t, WithBackend(BackendText))
	data := buildEPUB(t, threeChapterBook())

	res, err := c.Convert(context.Background(), Input{Filename: "three.epub", Data: data})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if res.Pages < 1 {
		t.Errorf("Pages = %d, want >= 1", res.Pages)
	}
	if res.Title != "Three Chapters" {
		t.Errorf("Title = %q, want %q", res.Title, "Three Chapters")
	}
	text := pdfText(t, res.PDF)
	for _, marker := range []string{"Alpha", "Bravo", "Charlie"} {
		if !strings.Contains(text, marker) {
			t.Errorf("PDF text missing %q", marker)
		}
	}
	assertEmptyDir(t, root)
}

func TestConvert_Idempotent(t *testing.T) {
	t.Parallel()

	c, root := newBuiltinConverter(t, WithBackend(BackendText))
	input := Input{Filename: "three.epub", Data: buildEPUB(t, threeChapterBook())}

	first, err := c.Convert(context.Background(), input)
	if err != nil {
		t.Fatalf("first Convert() error = %v", err)
	}
	second, err := c.Convert(context.Background(), input)
	if err != nil {
		t.Fatalf("second Convert() error = %v", err)
	}

	if first.Pages != second.Pages {
		t.Errorf("Pages differ: %d vs %d", first.Pages, second.Pages)
	}
	if pdfText(t, first.PDF) != pdfText(t, second.PDF) {
		t.Error("text content differs between runs")
	}
	assertEmptyDir(t, root)
}

func TestConvert_NotAnEPUB(t *testing.T) {
	t.Parallel()

	c, root := newBuiltinConverter(t, WithBackend(BackendText))

	_, err := c.Convert(context.Background(), Input{Filename: "notes.epub", Data: []byte("just some text renamed to .epub")})
	if !errors.Is(err, ErrConversion) {
		t.Errorf("error = %v, want ErrConversion", err)
	}
	if StageOf(err) != StageConversion {
		t.Errorf("StageOf() = %v, want conversion", StageOf(err))
	}
	assertEmptyDir(t, root)
}
