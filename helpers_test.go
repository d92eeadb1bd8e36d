package epub2pdf

// Notes:
// - Shared fixtures for the root package tests. EPUBs are built in memory
//   with archive/zip so no binary testdata is checked in.
// - Mocks record their calls and return canned results. samplePDF produces
//   a real one-page PDF so mocks pass the renderInto postcondition.

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/ledongthuc/pdf"
)

// ---------------------------------------------------------------------------
// EPUB fixtures
// ---------------------------------------------------------------------------

type fixtureChapter struct {
	title string // TOC title
	body  string // inner XHTML of <body>
}

type fixtureBook struct {
	title    string
	lang     string
	chapters []fixtureChapter
	files    map[string][]byte // extra archive entries under OEBPS/
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const chapterXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>%s</title></head>
<body>%s</body></html>`

// buildEPUB returns the bytes of a minimal EPUB 3 archive.
func buildEPUB(t *testing.T, book fixtureBook) []byte {
	t.Helper()

	lang := book.lang
	if lang == "" {
		lang = "en"
	}

	var manifest, spine, nav strings.Builder
	manifest.WriteString(`<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	for i, ch := range book.chapters {
		id := fmt.Sprintf("ch%d", i+1)
		fmt.Fprintf(&manifest, `<item id="%s" href="%s.xhtml" media-type="application/xhtml+xml"/>`+"\n", id, id)
		fmt.Fprintf(&spine, `<itemref idref="%s"/>`+"\n", id)
		if ch.title != "" {
			fmt.Fprintf(&nav, `<li><a href="%s.xhtml">%s</a></li>`, id, ch.title)
		}
	}
	i := 0
	for name := range book.files {
		i++
		fmt.Fprintf(&manifest, `<item id="res%d" href="%s" media-type="%s"/>`+"\n", i, name, mediaTypeFor(name))
	}

	opf := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:identifier id="uid">urn:uuid:2f1b9a3e-0c3d-4c1e-9d1a-6a7e2b9c0d11</dc:identifier>
<dc:title>%s</dc:title>
<dc:language>%s</dc:language>
</metadata>
<manifest>
%s</manifest>
<spine>
%s</spine>
</package>`, book.title, lang, manifest.String(), spine.String())

	navDoc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body><nav epub:type="toc"><ol>%s</ol></nav></body></html>`, nav.String())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// mimetype must be the first entry, stored uncompressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("buildEPUB: %v", err)
	}
	_, _ = io.WriteString(w, "application/epub+zip")

	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildEPUB: create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("buildEPUB: write %s: %v", name, err)
		}
	}
	write("META-INF/container.xml", []byte(containerXML))
	write("OEBPS/content.opf", []byte(opf))
	write("OEBPS/nav.xhtml", []byte(navDoc))
	for i, ch := range book.chapters {
		write(fmt.Sprintf("OEBPS/ch%d.xhtml", i+1), fmt.Appendf(nil, chapterXHTML, ch.title, ch.body))
	}
	for name, data := range book.files {
		write("OEBPS/"+name, data)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("buildEPUB: %v", err)
	}
	return buf.Bytes()
}

func mediaTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".css":
		return "text/css"
	default:
		return "application/octet-stream"
	}
}

// threeChapterBook has one paragraph per chapter, each with a marker word.
func threeChapterBook() fixtureBook {
	return fixtureBook{
		title: "Three Chapters",
		chapters: []fixtureChapter{
			{title: "One", body: "<h1>Chapter One</h1><p>Alpha paragraph.</p>"},
			{title: "Two", body: "<h1>Chapter Two</h1><p>Bravo paragraph.</p>"},
			{title: "Three", body: "<h1>Chapter Three</h1><p>Charlie paragraph.</p>"},
		},
	}
}

// testPNG returns a 2x2 PNG.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding PNG: %v", err)
	}
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// PDF helpers
// ---------------------------------------------------------------------------

// samplePDF returns a valid one-page PDF.
func samplePDF(t *testing.T) []byte {
	t.Helper()
	doc := gofpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(0, 12, "sample")
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("building sample PDF: %v", err)
	}
	return buf.Bytes()
}

// pdfText extracts the plain text of a PDF with ledongthuc/pdf.
func pdfText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening PDF: %v", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		t.Fatalf("extracting PDF text: %v", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		t.Fatalf("reading PDF text: %v", err)
	}
	return buf.String()
}

// ---------------------------------------------------------------------------
// Workspace helpers
// ---------------------------------------------------------------------------

// assertEmptyDir fails if dir contains anything.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	if len(entries) > 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("%s should be empty, found %v", dir, names)
	}
}

// testSource builds a renderSource over an HTML file written to a temp dir.
func testSource(t *testing.T, htmlContent string) *renderSource {
	t.Helper()
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, htmlFileName)
	if err := os.WriteFile(htmlPath, []byte(htmlContent), 0o600); err != nil {
		t.Fatalf("writing HTML: %v", err)
	}
	j := &job{dir: dir, htmlPath: htmlPath}
	return newRenderSource(j, DefaultPageSettings())
}

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

// mockHTMLConverter writes output (or a default document) to htmlPath.
type mockHTMLConverter struct {
	mu       sync.Mutex
	calls    int
	output   string
	err      error
	partial  bool // write a partial file before failing
	epubSeen []byte
	block    bool // wait for ctx to be done
}

func (m *mockHTMLConverter) ToHTML(ctx context.Context, epubPath, htmlPath string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if data, err := os.ReadFile(epubPath); err == nil {
		m.mu.Lock()
		m.epubSeen = data
		m.mu.Unlock()
	}

	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.err != nil {
		if m.partial {
			_ = os.WriteFile(htmlPath, []byte("<html><body>partial"), 0o600)
		}
		return m.err
	}
	out := m.output
	if out == "" {
		out = "<html><head><title>Mock Book</title></head><body><h1>Mock</h1><p>Body text.</p></body></html>"
	}
	return os.WriteFile(htmlPath, []byte(out), 0o600)
}

func (m *mockHTMLConverter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRenderer writes pdf (or nothing) to outputPath and returns report/err.
type mockRenderer struct {
	mu         sync.Mutex
	calls      int
	closed     int
	pdf        []byte
	report     *renderReport
	err        error
	panicMsg   string
	outputPath string
	writeFirst bool // write pdf before returning err
}

func (m *mockRenderer) Render(ctx context.Context, src *renderSource, outputPath string) (*renderReport, error) {
	m.mu.Lock()
	m.calls++
	m.outputPath = outputPath
	m.mu.Unlock()

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err == nil || m.writeFirst {
		if err := os.WriteFile(outputPath, m.pdf, 0o600); err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockRenderer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEngine returns output for every file and records what it was given.
type mockEngine struct {
	mu       sync.Mutex
	calls    int
	closed   bool
	output   *engineOutput
	err      error
	filePath string
	html     string
	opts     *pdfOptions
}

func (m *mockEngine) RenderFromFile(ctx context.Context, filePath string, opts *pdfOptions) (*engineOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.filePath = filePath
	m.opts = opts
	if data, err := os.ReadFile(filePath); err == nil {
		m.html = string(data)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func (m *mockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockRunner records invocations and returns canned output.
type mockRunner struct {
	stdout string
	stderr string
	err    error
	dir    string
	name   string
	args   []string
	// onRun, when set, runs before returning (e.g. to create the output file).
	onRun func(dir string, args []string)
}

func (m *mockRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	m.dir = dir
	m.name = name
	m.args = args
	if m.onRun != nil {
		m.onRun(dir, args)
	}
	return m.stdout, m.stderr, m.err
}
