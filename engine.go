package epub2pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/alnah/go-epub2pdf/internal/pipeline"
)

// pdfEngine prints a local HTML file to PDF in headless Chrome.
// One engine is shared by every job of a Converter and must be safe for
// concurrent use.
type pdfEngine interface {
	RenderFromFile(ctx context.Context, filePath string, opts *pdfOptions) (*engineOutput, error)
	Close() error
}

// pdfOptions holds options for PDF generation.
type pdfOptions struct {
	PaperWidth  float64 // inches, after orientation
	PaperHeight float64
	Margin      float64 // inches, all sides

	// Declarations are checked with CSS.supports once the page is loaded.
	Declarations []pipeline.Declaration
}

// engineOutput is a printed page plus what the browser could not honor.
type engineOutput struct {
	PDF          []byte
	BrokenImages []string // src of images that failed to decode or load
	Unsupported  []string // "property: value" rejected by CSS.supports
}

// browserConfig configures how an engine launches Chrome.
type browserConfig struct {
	bin       string
	noSandbox bool
	timeout   time.Duration // fallback when the job context has no deadline
}

// auditJS runs in the loaded page. It takes [[property, value], ...] and
// returns a JSON pageAudit.
const auditJS = `(decls) => JSON.stringify({
  unsupported: decls.filter(d => !CSS.supports(d[0], d[1])).map(d => d[0] + ": " + d[1]),
  broken: Array.from(document.images)
    .filter(img => img.complete && img.naturalWidth === 0)
    .map(img => img.getAttribute("src") || "")
})`

// pageAudit is the decoded result of auditJS.
type pageAudit struct {
	Unsupported []string `json:"unsupported"`
	Broken      []string `json:"broken"`
}

// auditArgs converts declarations to the argument shape auditJS expects.
func auditArgs(decls []pipeline.Declaration) [][2]string {
	args := make([][2]string, len(decls))
	for i, d := range decls {
		args[i] = [2]string{d.Property, d.Value}
	}
	return args
}

// parseAudit decodes the string returned by auditJS.
func parseAudit(raw string) (*pageAudit, error) {
	var a pageAudit
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decoding page audit: %w", err)
	}
	return &a, nil
}

// printOptions derives engine options for page.
func printOptions(page *PageSettings, decls []pipeline.Declaration) *pdfOptions {
	w, h := page.dimensionsInches()
	return &pdfOptions{
		PaperWidth:   w,
		PaperHeight:  h,
		Margin:       page.Margin,
		Declarations: decls,
	}
}

// fileURL converts an absolute path to a file:// URL.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	slashed := filepath.ToSlash(abs)
	if len(slashed) > 0 && slashed[0] != '/' {
		slashed = "/" + slashed // Windows drive letter
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String()
}

// remaining returns the time left before ctx's deadline, or fallback.
func remaining(ctx context.Context, fallback time.Duration) (time.Duration, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback, nil
	}
	d := time.Until(deadline)
	if d <= 0 {
		return 0, context.DeadlineExceeded
	}
	return d, nil
}
