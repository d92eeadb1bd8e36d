package epub2pdf

import (
	"log/slog"
	"time"
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	backend           Backend
	htmlConverter     HTMLConverterKind
	engine            BrowserEngine
	timeout           time.Duration
	conversionTimeout time.Duration
	maxInputSize      int64
	pandocPath        string
	fontPaths         []string
	page              *PageSettings
	tempDir           string
	browserBin        string
	noSandbox         bool
	style             string
	assetPath         string
}

// Defaults applied by NewConverter.
const (
	defaultTimeout           = 2 * time.Minute
	defaultConversionTimeout = 90 * time.Second
	DefaultMaxInputSize      = 256 << 20
)

func defaultConfig() converterConfig {
	return converterConfig{
		backend:           DefaultBackend,
		htmlConverter:     ConverterPandoc,
		engine:            EngineRod,
		timeout:           defaultTimeout,
		conversionTimeout: defaultConversionTimeout,
		maxInputSize:      DefaultMaxInputSize,
	}
}

// WithBackend sets the default rendering backend for every job.
// An unknown backend makes NewConverter fail with ErrUnknownBackend.
func WithBackend(b Backend) Option {
	return func(c *Converter) {
		c.cfg.backend = b
	}
}

// WithHTMLConverter selects the EPUB to HTML converter.
func WithHTMLConverter(k HTMLConverterKind) Option {
	return func(c *Converter) {
		c.cfg.htmlConverter = k
	}
}

// WithBrowserEngine selects the Chrome client used by the HTML backends.
func WithBrowserEngine(e BrowserEngine) Option {
	return func(c *Converter) {
		c.cfg.engine = e
	}
}

// WithTimeout sets the deadline for a whole job.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("epub2pdf: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithConversionTimeout sets the deadline for structural conversion.
// Panics if d <= 0.
func WithConversionTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("epub2pdf: WithConversionTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.conversionTimeout = d
	}
}

// WithMaxInputSize caps the accepted EPUB size in bytes.
// A value <= 0 makes NewConverter fail with ErrInvalidMaxInputSize.
func WithMaxInputSize(n int64) Option {
	return func(c *Converter) {
		c.cfg.maxInputSize = n
	}
}

// WithPandocPath sets the pandoc executable. Defaults to "pandoc" on PATH.
func WithPandocPath(path string) Option {
	return func(c *Converter) {
		c.cfg.pandocPath = path
	}
}

// WithFontPaths adds TrueType fonts tried, in order, before the host
// search list by the unicode backend.
func WithFontPaths(paths ...string) Option {
	return func(c *Converter) {
		c.cfg.fontPaths = append(c.cfg.fontPaths, paths...)
	}
}

// WithPage sets page size, orientation, margin and text size.
// Zero fields keep their defaults.
func WithPage(p *PageSettings) Option {
	return func(c *Converter) {
		c.cfg.page = p
	}
}

// WithTempDir sets the directory under which job workspaces are created.
func WithTempDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.tempDir = dir
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBrowserBin uses a pre-installed Chrome instead of the one rod downloads.
func WithBrowserBin(path string) Option {
	return func(c *Converter) {
		c.cfg.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox (containers, CI).
func WithNoSandbox(enable bool) Option {
	return func(c *Converter) {
		c.cfg.noSandbox = enable
	}
}

// WithStyle selects the print stylesheet injected by the HTML backends:
// a style name, a path to a .css file, or raw CSS.
func WithStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.style = style
	}
}

// WithAssetPath adds a directory searched for styles before the embedded ones.
func WithAssetPath(path string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = path
	}
}

// withHTMLConverterImpl injects a structural converter (tests).
func withHTMLConverterImpl(hc htmlConverter) Option {
	return func(c *Converter) {
		c.converter = hc
	}
}

// withRenderer replaces the renderer built for backend b (tests).
func withRenderer(b Backend, r renderer) Option {
	return func(c *Converter) {
		if c.renderers == nil {
			c.renderers = make(map[Backend]renderer)
		}
		c.renderers[b] = r
	}
}

// withEngine injects the browser engine (tests).
func withEngine(e pdfEngine) Option {
	return func(c *Converter) {
		c.engine = e
	}
}
