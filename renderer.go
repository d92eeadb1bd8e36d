package epub2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/alnah/go-epub2pdf/internal/pipeline"
)

// renderer turns the intermediate HTML of one job into a PDF at outputPath.
// Implementations need not clean up on failure: renderInto does.
type renderer interface {
	Render(ctx context.Context, src *renderSource, outputPath string) (*renderReport, error)
	Close() error
}

// renderSource is what a renderer may read from the job.
type renderSource struct {
	htmlPath string
	workDir  string
	page     *PageSettings

	// alloc hands out a workspace path that teardown will remove.
	alloc func(name string) string

	// document returns the plain-text projection, computed once on demand.
	document func() (*pipeline.TextDocument, error)
}

func newRenderSource(j *job, page *PageSettings) *renderSource {
	src := &renderSource{
		htmlPath: j.htmlPath,
		workDir:  j.dir,
		page:     page,
		alloc:    j.path,
	}
	src.document = sync.OnceValues(func() (*pipeline.TextDocument, error) {
		return extractDocument(src.htmlPath)
	})
	return src
}

func extractDocument(htmlPath string) (*pipeline.TextDocument, error) {
	f, err := os.Open(htmlPath) // #nosec G304 -- path inside the job workspace
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := pipeline.ExtractText(f)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}
	return doc, nil
}

// renderReport describes a successful render.
type renderReport struct {
	pages  int
	title  string
	issues []RenderIssue
}

// renderInto runs r and enforces the rendering postcondition: on success
// outputPath holds a valid PDF with at least one page, on failure it does
// not exist. Failures carry ErrRender, except ErrFontResourceMissing which
// stays distinct.
func renderInto(ctx context.Context, r renderer, src *renderSource, outputPath string) (*renderReport, error) {
	report, err := r.Render(ctx, src, outputPath)
	if err == nil {
		var pages int
		if pages, err = verifyPDF(outputPath); err == nil {
			if report == nil {
				report = &renderReport{}
			}
			report.pages = pages
			return report, nil
		}
	}

	if rmErr := removePath(outputPath); rmErr != nil {
		err = errors.Join(err, rmErr)
	}
	if errors.Is(err, ErrFontResourceMissing) || errors.Is(err, ErrRender) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrRender, err)
}
