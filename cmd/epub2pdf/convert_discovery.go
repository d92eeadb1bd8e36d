package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/fileutil"
)

// epubExt is the only input extension accepted, compared case-insensitively.
const epubExt = ".epub"

// Sentinel errors for file discovery.
var (
	ErrNoInput            = errors.New("no input specified")
	ErrInvalidExtension   = errors.New("file must have .epub extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrOutputNotDir       = errors.New("output must be a directory when converting several files")
)

// FileToConvert represents a single file to process.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// discoverInputs expands every positional argument into files to convert.
// Files named twice are converted once.
func discoverInputs(args []string, output string) ([]FileToConvert, error) {
	if len(args) == 0 {
		return nil, ErrNoInput
	}

	var (
		files []FileToConvert
		seen  = make(map[string]bool)
	)
	for _, arg := range args {
		found, err := discoverFiles(arg, output)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			key := filepath.Clean(f.InputPath)
			if seen[key] {
				continue
			}
			seen[key] = true
			files = append(files, f)
		}
	}

	if len(files) > 1 && isPDFPath(output) {
		return nil, fmt.Errorf("%w: %s", ErrOutputNotDir, output)
	}
	return files, nil
}

// discoverFiles finds all EPUB files to convert under inputPath.
func discoverFiles(inputPath, outputDir string) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateEPUBExtension(inputPath); err != nil {
			return nil, err
		}
		outPath := resolveOutputPath(inputPath, outputDir, "")
		return []FileToConvert{{InputPath: inputPath, OutputPath: outPath}}, nil
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !fileutil.HasExtension(path, epubExt) {
			return nil
		}
		outPath := resolveOutputPath(path, outputDir, inputPath)
		files = append(files, FileToConvert{InputPath: path, OutputPath: outPath})
		return nil
	})

	return files, err
}

// resolveOutputPath determines the PDF output path for an EPUB file.
// Directory inputs keep their layout under outputDir.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	if outputDir == "" {
		return fileutil.OutputPath(inputPath, "")
	}

	if isPDFPath(outputDir) {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			return filepath.Join(outputDir, fileutil.OutputPath(relPath, ""))
		}
	}

	return fileutil.OutputPath(inputPath, outputDir)
}

// isPDFPath reports whether an -o value names a file rather than a directory.
func isPDFPath(output string) bool {
	return fileutil.HasExtension(output, ".pdf")
}

// validateEPUBExtension checks that the file has an .epub extension.
func validateEPUBExtension(path string) error {
	if !fileutil.HasExtension(path, epubExt) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > epub2pdf.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, epub2pdf.MaxPoolSize)
	}
	return nil
}

// outputDirFor returns the -o value, falling back to output.dir.
func outputDirFor(flagOutput, cfgDir string) string {
	if strings.TrimSpace(flagOutput) != "" {
		return flagOutput
	}
	return cfgDir
}
