package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/assets"
	"github.com/alnah/go-epub2pdf/internal/config"
	"github.com/alnah/go-epub2pdf/internal/fileutil"
	"github.com/alnah/go-epub2pdf/internal/hints"
)

// Exit codes for epub2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Successful conversion
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, or validation
	ExitIO         = 3 // File not found, permission denied
	ExitBrowser    = 4 // Browser/Chrome errors
	ExitConversion = 5 // EPUB could not be converted to HTML
	ExitRender     = 6 // Backend failed or no font covers the text
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, epub2pdf.ErrBrowserConnect) ||
		errors.Is(err, epub2pdf.ErrPageCreate) ||
		errors.Is(err, epub2pdf.ErrPageLoad) ||
		errors.Is(err, epub2pdf.ErrPDFGeneration) {
		return ExitBrowser
	}

	// Render and font errors (exit 6)
	if errors.Is(err, epub2pdf.ErrFontResourceMissing) ||
		errors.Is(err, epub2pdf.ErrRender) {
		return ExitRender
	}

	// Conversion errors (exit 5)
	if errors.Is(err, epub2pdf.ErrConversion) {
		return ExitConversion
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, epub2pdf.ErrIO) ||
		errors.Is(err, ErrReadEPUB) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrCreateOutputDir) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, epub2pdf.ErrEmptyInput) ||
		errors.Is(err, epub2pdf.ErrInputTooLarge) ||
		errors.Is(err, epub2pdf.ErrUnknownBackend) ||
		errors.Is(err, epub2pdf.ErrUnknownConverter) ||
		errors.Is(err, epub2pdf.ErrUnknownEngine) ||
		errors.Is(err, epub2pdf.ErrInvalidPageSize) ||
		errors.Is(err, epub2pdf.ErrInvalidOrientation) ||
		errors.Is(err, epub2pdf.ErrInvalidMargin) ||
		errors.Is(err, epub2pdf.ErrInvalidFontSize) ||
		errors.Is(err, epub2pdf.ErrInvalidMaxInputSize) ||
		errors.Is(err, epub2pdf.ErrInvalidAssetPath) ||
		errors.Is(err, epub2pdf.ErrStyleLoad) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidLogFormat) ||
		errors.Is(err, ErrOutputNotDir) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var fm *epub2pdf.FontMissingError
	switch {
	case errors.Is(err, epub2pdf.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, epub2pdf.ErrConverterNotFound):
		return hints.ForPandocNotFound()
	case errors.As(err, &fm):
		return hints.ForFontMissing(fm.Tried)
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, epub2pdf.ErrInputTooLarge):
		return hints.ForInputTooLarge()
	case errors.Is(err, epub2pdf.ErrStyleLoad):
		return hints.ForStyleNotFound(assets.StyleNames())
	case errors.Is(err, ErrCreateOutputDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(userConfigCandidates(err))
	}
	return ""
}

// userConfigCandidates lists where a named config would live under the
// user config directory. Only used to shape the hint.
func userConfigCandidates(err error) []string {
	var le *configLoadError
	if !errors.As(err, &le) || fileutil.IsFilePath(le.name) {
		return nil
	}
	dir, dirErr := os.UserConfigDir()
	if dirErr != nil {
		return nil
	}
	return []string{filepath.Join(dir, "go-epub2pdf", le.name+".yaml")}
}
