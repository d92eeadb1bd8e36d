package epub2pdf

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// MediaTypePDF is the media type of every delivered document.
const MediaTypePDF = "application/pdf"

// Stage identifies a step of the conversion pipeline.
type Stage int

// Pipeline stages in execution order.
const (
	StageUnknown Stage = iota
	StageIntake
	StageConversion
	StageRendering
	StageDelivery
)

func (s Stage) String() string {
	switch s {
	case StageIntake:
		return "intake"
	case StageConversion:
		return "conversion"
	case StageRendering:
		return "rendering"
	case StageDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// Input is one uploaded EPUB.
type Input struct {
	Filename string // original upload name, used to derive Result.Filename
	Data     []byte // raw EPUB bytes, written verbatim during intake

	// Backend overrides the converter's default backend for this job.
	// The zero value keeps the default.
	Backend Backend
}

// Result is a delivered PDF.
type Result struct {
	Filename  string // "<base>.pdf"
	MediaType string // always MediaTypePDF
	PDF       []byte
	Pages     int
	Title     string
	Backend   Backend

	// Warnings is non-nil when the renderer reported missing images,
	// unsupported style rules or replaced glyphs. The PDF is still complete.
	Warnings *PartialRenderError
}

// WriteTo writes the PDF bytes to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.PDF)
	return int64(n), err
}

// WriteFile writes the PDF bytes to path with 0644 permissions.
func (r *Result) WriteFile(path string) error {
	// #nosec G306 -- PDFs are meant to be readable
	if err := os.WriteFile(path, r.PDF, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}
	return nil
}

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.75
)

// Font size bounds in points for the text flows.
const (
	MinFontSize     = 6.0
	MaxFontSize     = 36.0
	DefaultFontSize = 12.0
)

// PageSettings configures PDF page dimensions for every backend.
type PageSettings struct {
	Size        string  // "letter", "a4", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // inches, applied to all sides
	FontSize    float64 // points, text flows only
}

// DefaultPageSettings returns A4 portrait with 0.75in margins and 12pt text.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeA4,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
		FontSize:    DefaultFontSize,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if !isValidPageSize(p.Size) {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	if !isValidOrientation(p.Orientation) {
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	if p.FontSize < MinFontSize || p.FontSize > MaxFontSize {
		return fmt.Errorf("%w: %.1f (must be between %.1f and %.1f)", ErrInvalidFontSize, p.FontSize, MinFontSize, MaxFontSize)
	}

	return nil
}

// dimensionsInches returns the paper width and height after orientation.
func (p *PageSettings) dimensionsInches() (width, height float64) {
	switch strings.ToLower(p.Size) {
	case PageSizeLetter:
		width, height = 8.5, 11
	case PageSizeLegal:
		width, height = 8.5, 14
	default:
		width, height = 8.27, 11.69
	}
	if strings.EqualFold(p.Orientation, OrientationLandscape) {
		width, height = height, width
	}
	return width, height
}

// gofpdfSize returns the size and orientation arguments expected by gofpdf.
func (p *PageSettings) gofpdfSize() (orientation, size string) {
	orientation = "P"
	if strings.EqualFold(p.Orientation, OrientationLandscape) {
		orientation = "L"
	}
	switch strings.ToLower(p.Size) {
	case PageSizeLetter:
		size = "Letter"
	case PageSizeLegal:
		size = "Legal"
	default:
		size = "A4"
	}
	return orientation, size
}

// isValidPageSize checks if size is a known page size (case-insensitive).
func isValidPageSize(size string) bool {
	switch strings.ToLower(size) {
	case PageSizeLetter, PageSizeA4, PageSizeLegal:
		return true
	default:
		return false
	}
}

// isValidOrientation checks if orientation is valid (case-insensitive).
func isValidOrientation(orientation string) bool {
	switch strings.ToLower(orientation) {
	case OrientationPortrait, OrientationLandscape:
		return true
	default:
		return false
	}
}
