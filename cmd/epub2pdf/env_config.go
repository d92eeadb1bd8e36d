package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-epub2pdf/internal/config"
	"github.com/alnah/go-epub2pdf/internal/hints"
)

// envPrefix marks the variables read by the CLI.
const envPrefix = "EPUB2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // EPUB2PDF_CONFIG: config file path
	Backend    string        // EPUB2PDF_BACKEND: text, unicode, html, html-noimages
	Timeout    time.Duration // EPUB2PDF_TIMEOUT: job timeout

	// Tier 2 - Tools
	Converter  string   // EPUB2PDF_CONVERTER: pandoc, builtin, auto
	Engine     string   // EPUB2PDF_ENGINE: rod, chromedp
	PandocPath string   // EPUB2PDF_PANDOC: pandoc executable
	BrowserBin string   // EPUB2PDF_BROWSER_BIN: Chrome executable
	NoSandbox  bool     // EPUB2PDF_NO_SANDBOX: "1" or "true"
	FontPaths  []string // EPUB2PDF_FONT_PATHS: list separated by os.PathListSeparator

	// Tier 3 - Extended
	OutputDir string // EPUB2PDF_OUTPUT_DIR: default output directory
	PageSize  string // EPUB2PDF_PAGE_SIZE: a4, letter, legal
	Style     string // EPUB2PDF_STYLE: print stylesheet name
	Workers   int    // EPUB2PDF_WORKERS: parallel workers
	Addr      string // EPUB2PDF_ADDR: serve listen address
	LogFormat string // EPUB2PDF_LOG_FORMAT: text, json
}

// knownEnvVars lists valid EPUB2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"EPUB2PDF_CONFIG":  true,
	"EPUB2PDF_BACKEND": true,
	"EPUB2PDF_TIMEOUT": true,
	// Tier 2 - Tools
	"EPUB2PDF_CONVERTER": true,
	"EPUB2PDF_ENGINE":    true,
	hints.EnvPandocPath:  true,
	hints.EnvBrowserBin:  true,
	hints.EnvNoSandbox:   true,
	hints.EnvFontPaths:   true,
	// Tier 3 - Extended
	"EPUB2PDF_OUTPUT_DIR": true,
	"EPUB2PDF_PAGE_SIZE":  true,
	"EPUB2PDF_STYLE":      true,
	"EPUB2PDF_WORKERS":    true,
	"EPUB2PDF_ADDR":       true,
	"EPUB2PDF_LOG_FORMAT": true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		// Tier 1
		ConfigPath: getenv("EPUB2PDF_CONFIG"),
		Backend:    getenv("EPUB2PDF_BACKEND"),
		// Tier 2
		Converter:  getenv("EPUB2PDF_CONVERTER"),
		Engine:     getenv("EPUB2PDF_ENGINE"),
		PandocPath: getenv(hints.EnvPandocPath),
		BrowserBin: getenv(hints.EnvBrowserBin),
		// Tier 3
		OutputDir: getenv("EPUB2PDF_OUTPUT_DIR"),
		PageSize:  getenv("EPUB2PDF_PAGE_SIZE"),
		Style:     getenv("EPUB2PDF_STYLE"),
		Addr:      getenv("EPUB2PDF_ADDR"),
		LogFormat: getenv("EPUB2PDF_LOG_FORMAT"),
	}

	// Parse duration for timeout
	if timeout := getenv("EPUB2PDF_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	// Parse int for workers
	if workers := getenv("EPUB2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	if v := getenv(hints.EnvNoSandbox); v != "" {
		cfg.NoSandbox, _ = strconv.ParseBool(v)
	}

	if v := getenv(hints.EnvFontPaths); v != "" {
		for _, p := range filepath.SplitList(v) {
			if p = strings.TrimSpace(p); p != "" {
				cfg.FontPaths = append(cfg.FontPaths, p)
			}
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized EPUB2PDF_* variables.
// Helps catch typos like EPUB2PDF_BACKNED instead of EPUB2PDF_BACKEND.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables replace config file values; CLI flags are merged afterwards,
// giving: CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.Backend != "" {
		cfg.Render.Backend = env.Backend
	}
	if env.Timeout > 0 {
		cfg.Limits.JobTimeout = env.Timeout
	}

	// Tier 2
	if env.Converter != "" {
		cfg.Converter.Tool = env.Converter
	}
	if env.Engine != "" {
		cfg.Browser.Engine = env.Engine
	}
	if env.PandocPath != "" {
		cfg.Converter.PandocPath = env.PandocPath
	}
	if env.BrowserBin != "" {
		cfg.Browser.Bin = env.BrowserBin
	}
	if env.NoSandbox {
		cfg.Browser.NoSandbox = true
	}
	if len(env.FontPaths) > 0 {
		cfg.Render.FontPaths = env.FontPaths
	}

	// Tier 3
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.PageSize != "" {
		cfg.Render.PageSize = env.PageSize
	}
	if env.Style != "" {
		cfg.Render.Style = env.Style
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
}
