package epub2pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/alnah/go-epub2pdf/internal/pipeline"
)

// htmlRenderer prepares the intermediate HTML for print and hands it to
// the shared browser engine.
type htmlRenderer struct {
	engine   pdfEngine
	injector pipeline.CSSInjector
	css      string
	page     *PageSettings
	noImages bool
}

func (r *htmlRenderer) Render(ctx context.Context, src *renderSource, outputPath string) (*renderReport, error) {
	raw, err := os.ReadFile(src.htmlPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading HTML: %v", ErrIO, err)
	}
	content := string(raw)

	if r.noImages {
		if content, _, err = pipeline.StripImages(content); err != nil {
			return nil, fmt.Errorf("stripping images: %w", err)
		}
	}

	content, err = pipeline.RewriteRelativePaths(content, src.workDir)
	if err != nil {
		return nil, fmt.Errorf("rewriting media paths: %w", err)
	}

	decls, err := pipeline.CollectDeclarations(content)
	if err != nil {
		return nil, fmt.Errorf("collecting style rules: %w", err)
	}

	content = r.injector.InjectCSS(ctx, content, r.css)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	renderPath := src.alloc(renderFileName)
	if err := os.WriteFile(renderPath, []byte(content), inputFilePerm); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", ErrIO, renderFileName, err)
	}

	out, err := r.engine.RenderFromFile(ctx, renderPath, printOptions(r.page, decls))
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, out.PDF, inputFilePerm); err != nil {
		return nil, fmt.Errorf("%w: writing PDF: %v", ErrIO, err)
	}

	report := &renderReport{}
	if doc, err := src.document(); err == nil {
		report.title = doc.Title
	}
	for _, img := range out.BrokenImages {
		report.issues = append(report.issues, RenderIssue{Kind: IssueImage, Detail: img})
	}
	for _, decl := range out.Unsupported {
		report.issues = append(report.issues, RenderIssue{Kind: IssueCSS, Detail: decl})
	}
	return report, nil
}

// Close is a no-op: the engine belongs to the Converter.
func (r *htmlRenderer) Close() error { return nil }
