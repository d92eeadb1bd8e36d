// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-epub2pdf/internal/fileutil"
)

// Environment variables the hints point users to. The CLI reads the same names.
const (
	EnvNoSandbox  = "EPUB2PDF_NO_SANDBOX"
	EnvBrowserBin = "EPUB2PDF_BROWSER_BIN"
	EnvPandocPath = "EPUB2PDF_PANDOC"
	EnvFontPaths  = "EPUB2PDF_FONT_PATHS"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv(EnvNoSandbox) != "1" {
		hints = append(hints, "set "+EnvNoSandbox+"=1 for Docker/CI")
	}

	if os.Getenv(EnvBrowserBin) == "" {
		hints = append(hints, "set "+EnvBrowserBin+" to use a custom Chrome")
	}

	hints = append(hints, "or use --backend unicode, which needs no browser")

	return formatHints(hints)
}

// ForPandocNotFound returns hints when the pandoc executable is missing.
func ForPandocNotFound() string {
	hints := []string{"install pandoc (https://pandoc.org/installing.html)"}
	if os.Getenv(EnvPandocPath) == "" {
		hints = append(hints, "set "+EnvPandocPath+" to its path")
	}
	hints = append(hints, "or use --converter builtin")
	return formatHints(hints)
}

// ForFontMissing returns hints when no candidate font covers the document.
// tried lists the font files that were examined.
func ForFontMissing(tried []string) string {
	hints := []string{"install a CJK font such as Noto Sans CJK or pass --font /path/to/font.ttf"}
	if len(tried) > 0 {
		names := make([]string, 0, len(tried))
		for _, p := range tried {
			names = append(names, filepath.Base(p))
		}
		hints = append(hints, "tried: "+strings.Join(names, ", "))
	}
	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large books, use --timeout or --conversion-timeout")
}

// ForInputTooLarge returns a hint for inputs over the configured size limit.
func ForInputTooLarge() string {
	return format("raise limits.maxInputMB in the config file")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-epub2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepath.ToSlash(p), "/go-epub2pdf/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
