package epub2pdf

import (
	"context"
	"fmt"
)

// unicodeFontFamily is the name the selected TrueType font is registered under.
const unicodeFontFamily = "body"

// unicodeRenderer lays out the plain-text projection with an embedded
// TrueType font that has a glyph for every rune, wrapping lines itself.
type unicodeRenderer struct {
	page       *PageSettings
	candidates []string
}

// newUnicodeRenderer tries fonts before DefaultFontPaths.
func newUnicodeRenderer(page *PageSettings, fonts []string) *unicodeRenderer {
	candidates := make([]string, 0, len(fonts)+len(DefaultFontPaths))
	candidates = append(candidates, fonts...)
	candidates = append(candidates, DefaultFontPaths...)
	return &unicodeRenderer{page: page, candidates: candidates}
}

func (r *unicodeRenderer) Render(ctx context.Context, src *renderSource, outputPath string) (*renderReport, error) {
	doc, err := src.document()
	if err != nil {
		return nil, err
	}

	font, err := selectFont(r.candidates, doc.Runes())
	if err != nil {
		return nil, err
	}

	pdf := newPDF(r.page)
	pdf.AddUTF8FontFromBytes(unicodeFontFamily, "", font.data)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: embedding %s: %v", ErrPDFGeneration, font.path, err)
	}

	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	width := pageWidth - left - right

	// Only the regular face is registered; headings differ by size.
	setFont := func(_ string, size float64) {
		pdf.SetFont(unicodeFontFamily, "", size)
	}
	place := func(s string, lineHeight float64) {
		for _, piece := range wrapText(s, width, pdf.GetStringWidth) {
			pdf.CellFormat(width, lineHeight, piece, "", 1, "L", false, 0, "")
		}
	}
	if err := writeFlow(ctx, pdf, doc, r.page.FontSize, setFont, place); err != nil {
		return nil, err
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return &renderReport{title: doc.Title}, nil
}

func (r *unicodeRenderer) Close() error { return nil }
