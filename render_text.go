package epub2pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/alnah/go-epub2pdf/internal/pipeline"
)

// Text flow layout, in points. Line height keeps the 12/16 ratio at every size.
const (
	pointsPerInch      = 72.0
	lineHeightRatio    = 16.0 / 12.0
	titleScale         = 1.5
	paragraphSpacing   = 6.0
	coreFontFamily     = "Helvetica"
	replacementRune    = '.'
	ctxCheckEveryLines = 64
	pdfCreator         = "go-epub2pdf"
)

// textRenderer lays out the plain-text projection with a built-in core font.
// Core fonts only cover cp1252; other runes are replaced and counted.
type textRenderer struct {
	page *PageSettings
}

func (r *textRenderer) Render(ctx context.Context, src *renderSource, outputPath string) (*renderReport, error) {
	doc, err := src.document()
	if err != nil {
		return nil, err
	}

	pdf := newPDF(r.page)
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	replaced := 0
	encode := func(s string) string {
		out, n := toCP1252(s)
		replaced += n
		return translate(out)
	}

	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	setFont := func(style string, size float64) {
		pdf.SetFont(coreFontFamily, style, size)
	}
	place := func(s string, lineHeight float64) {
		pdf.MultiCell(0, lineHeight, encode(s), "", "L", false)
	}
	if err := writeFlow(ctx, pdf, doc, r.page.FontSize, setFont, place); err != nil {
		return nil, err
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	report := &renderReport{title: doc.Title}
	if replaced > 0 {
		report.issues = append(report.issues, RenderIssue{
			Kind:   IssueGlyph,
			Detail: fmt.Sprintf("%d characters outside the built-in font replaced with %q", replaced, replacementRune),
		})
	}
	return report, nil
}

func (r *textRenderer) Close() error { return nil }

// writeFlow places the title and one paragraph block per line, followed
// by a spacer. place lays out one block at the given line height.
func writeFlow(ctx context.Context, pdf *gofpdf.Fpdf, doc *pipeline.TextDocument, fontSize float64,
	setFont func(style string, size float64), place func(s string, lineHeight float64)) error {
	lineHeight := fontSize * lineHeightRatio

	if doc.Title != "" {
		setFont("B", fontSize*titleScale)
		place(doc.Title, lineHeight*titleScale)
		pdf.Ln(paragraphSpacing * 2)
	}

	setFont("", fontSize)
	for i, line := range doc.Lines {
		if i%ctxCheckEveryLines == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		place(line, lineHeight)
		pdf.Ln(paragraphSpacing)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return nil
}

// newPDF creates a point-unit document for page with margins applied.
func newPDF(page *PageSettings) *gofpdf.Fpdf {
	orientation, size := page.gofpdfSize()
	pdf := gofpdf.New(orientation, "pt", size, "")
	margin := page.Margin * pointsPerInch
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreator(pdfCreator, true)
	return pdf
}

// toCP1252 replaces every rune the core fonts cannot encode and returns
// the number of replacements.
func toCP1252(s string) (string, int) {
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			r = replacementRune
			n++
		}
		b.WriteRune(r)
	}
	return b.String(), n
}
