// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// DefaultPDFName is used when nothing usable remains of the source name.
const DefaultPDFName = "document.pdf"

// maxNameBytes keeps derived names under common filesystem limits.
const maxNameBytes = 200

// WriteTempFile creates a temporary file with the given content and extension
// in dir (empty = os.TempDir). Returns the file path and a cleanup function.
func WriteTempFile(dir, content, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp(dir, "epub2pdf-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// HasExtension reports whether path ends in ext, ignoring case.
// ext includes the leading dot.
func HasExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// PDFName derives the output file name from an uploaded file name:
// base name only, extension replaced by ".pdf", NFC-normalized, with
// separators and control characters dropped.
func PDFName(uploadName string) string {
	// Uploads from Windows browsers may carry backslash paths.
	name := uploadName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' || r == '\\' {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	name = truncateUTF8(name, maxNameBytes)
	if name == "" {
		return DefaultPDFName
	}
	return name + ".pdf"
}

// ASCIIName transliterates name to printable ASCII for legacy headers:
// diacritics are stripped, other non-ASCII runes become '_', and quotes
// are dropped.
func ASCIIName(name string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == '"' || r == '\\' })),
		runes.Map(func(r rune) rune {
			if r < 0x20 || r > 0x7e {
				return '_'
			}
			return r
		}),
	)
	out, _, err := transform.String(t, name)
	if err != nil || strings.Trim(out, "_.") == "" {
		return DefaultPDFName
	}
	return out
}

// OutputPath returns where the PDF for inputPath is written: next to the
// source when outDir is empty, inside outDir otherwise.
func OutputPath(inputPath, outDir string) string {
	name := PDFName(filepath.Base(inputPath))
	if outDir == "" {
		return filepath.Join(filepath.Dir(inputPath), name)
	}
	return filepath.Join(outDir, name)
}

func truncateUTF8(s string, maxBytes int) string {
	for len(s) > maxBytes {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
