package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// bundled holds the print stylesheets injected into converted books and
// the upload form served by the HTTP front end.
//
//go:embed styles/*.css templates/*.html
var bundled embed.FS

// Subdirectories and extensions of each asset kind inside bundled.
const (
	styleDir    = "styles"
	styleExt    = ".css"
	templateDir = "templates"
	templateExt = ".html"
)

// EmbeddedLoader serves the stylesheets and templates compiled into the
// binary. It is the loader used when no asset path is configured.
type EmbeddedLoader struct{}

// NewEmbeddedLoader returns the built-in loader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// LoadStyle returns the bundled print stylesheet called name, such as
// "print" or "compact".
func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	return readBundled(styleDir, name, styleExt, ErrStyleNotFound)
}

// LoadTemplate returns the bundled HTML template called name.
func (e *EmbeddedLoader) LoadTemplate(name string) (string, error) {
	return readBundled(templateDir, name, templateExt, ErrTemplateNotFound)
}

// Styles lists the bundled stylesheet names, sorted.
func (e *EmbeddedLoader) Styles() []string {
	entries, err := fs.ReadDir(bundled, styleDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), styleExt); ok && !entry.IsDir() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func readBundled(dir, name, ext string, notFound error) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	content, err := bundled.ReadFile(dir + "/" + name + ext)
	if err != nil {
		return "", fmt.Errorf("%w: %q (bundled: %s)", notFound, name, strings.Join(bundledNames(dir, ext), ", "))
	}
	return string(content), nil
}

func bundledNames(dir, ext string) []string {
	entries, _ := fs.ReadDir(bundled, dir)
	var names []string
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ext); ok {
			names = append(names, name)
		}
	}
	return names
}

var _ AssetLoader = (*EmbeddedLoader)(nil)
