package epub2pdf

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds a job can end with.
// Stage failures are wrapped in *StageError; use errors.Is to classify them.
var (
	ErrIO                  = errors.New("I/O failure")
	ErrConversion          = errors.New("structural conversion failed")
	ErrRender              = errors.New("rendering failed")
	ErrRenderPartial       = errors.New("rendering completed with missing resources")
	ErrFontResourceMissing = errors.New("no font covers the document text")
)

// Intake errors.
var (
	ErrEmptyInput    = errors.New("input payload is empty")
	ErrInputTooLarge = errors.New("input payload exceeds size limit")
)

// Converter and backend errors.
var (
	ErrUnknownBackend      = errors.New("unknown rendering backend")
	ErrUnknownConverter    = errors.New("unknown structural converter")
	ErrUnknownEngine       = errors.New("unknown browser engine")
	ErrConverterNotFound   = fmt.Errorf("%w: converter executable not found", ErrConversion)
	ErrNoChapters          = fmt.Errorf("%w: book has no readable chapters", ErrConversion)
	ErrBrowserConnect      = errors.New("failed to connect to browser")
	ErrPageCreate          = errors.New("failed to create browser page")
	ErrPageLoad            = errors.New("failed to load page")
	ErrPDFGeneration       = errors.New("PDF generation failed")
	ErrInvalidPDF          = errors.New("rendered output is not a valid PDF")
	ErrClosed              = errors.New("converter is closed")
	ErrInvalidFontSize     = errors.New("invalid font size")
	ErrInvalidPageSize     = errors.New("invalid page size")
	ErrInvalidOrientation  = errors.New("invalid orientation")
	ErrInvalidMargin       = errors.New("invalid margin")
	ErrInvalidMaxInputSize = errors.New("invalid max input size")
	ErrInvalidAssetPath    = errors.New("invalid asset path")
	ErrStyleLoad           = errors.New("failed to load style")
)

// StageError reports which pipeline stage a job failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or StageUnknown.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageUnknown
}

// RenderIssue describes one resource the renderer could not honor.
type RenderIssue struct {
	Kind   string // "image", "css", "glyph"
	Detail string
}

func (i RenderIssue) String() string {
	return i.Kind + ": " + i.Detail
}

// Issue kinds reported in RenderIssue.Kind.
const (
	IssueImage = "image"
	IssueCSS   = "css"
	IssueGlyph = "glyph"
)

// PartialRenderError is a non-fatal warning attached to a successful Result
// when some images or style rules were not rendered.
type PartialRenderError struct {
	Issues []RenderIssue
}

func (e *PartialRenderError) Error() string {
	if len(e.Issues) == 0 {
		return ErrRenderPartial.Error()
	}
	parts := make([]string, 0, min(len(e.Issues), maxReportedIssues))
	for i, issue := range e.Issues {
		if i == maxReportedIssues {
			break
		}
		parts = append(parts, issue.String())
	}
	msg := fmt.Sprintf("%v: %s", ErrRenderPartial, strings.Join(parts, "; "))
	if extra := len(e.Issues) - maxReportedIssues; extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return msg
}

func (e *PartialRenderError) Unwrap() error {
	return ErrRenderPartial
}

// maxReportedIssues caps the issues spelled out in PartialRenderError.Error.
const maxReportedIssues = 5
