package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/config"
)

// Sentinel errors for flag and setting resolution.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrUnexpectedArgs   = fmt.Errorf("%w: unexpected arguments", ErrUsage)
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// cliDefaultConverter prefers pandoc when installed and falls back to the
// built-in converter.
const cliDefaultConverter = epub2pdf.ConverterAuto

// configLoadError records which config name failed to load.
type configLoadError struct {
	name string
	err  error
}

func (e *configLoadError) Error() string {
	return fmt.Sprintf("loading config %q: %v", e.name, e.err)
}

func (e *configLoadError) Unwrap() error {
	return e.err
}

// loadSettings reads the environment and the config file (--config, then
// EPUB2PDF_CONFIG) and layers the environment over the file.
func loadSettings(common commonFlags, env *Environment) (*config.Config, *envConfig, error) {
	ec := loadEnvConfig(env.Getenv)
	warnUnknownEnvVars(env.Stderr, env.Environ())

	cfg := config.DefaultConfig()
	name := common.config
	if name == "" {
		name = ec.ConfigPath
	}
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, nil, &configLoadError{name: name, err: err}
		}
		cfg = loaded
	}

	applyEnvConfig(ec, cfg)
	return cfg, ec, nil
}

// mergeRenderFlags merges CLI flags into config. CLI values override config values.
func mergeRenderFlags(r renderFlags, p pageFlags, l limitFlags, cfg *config.Config) {
	if r.backend != "" {
		cfg.Render.Backend = r.backend
	}
	if r.converter != "" {
		cfg.Converter.Tool = r.converter
	}
	if r.engine != "" {
		cfg.Browser.Engine = r.engine
	}
	if r.pandoc != "" {
		cfg.Converter.PandocPath = r.pandoc
	}
	if r.browserBin != "" {
		cfg.Browser.Bin = r.browserBin
	}
	if r.noSandbox {
		cfg.Browser.NoSandbox = true
	}
	if len(r.fonts) > 0 {
		cfg.Render.FontPaths = r.fonts
	}
	if r.style != "" {
		cfg.Render.Style = r.style
	}
	if r.assetPath != "" {
		cfg.Limits.AssetsPath = r.assetPath
	}

	// Page flags
	if p.size != "" {
		cfg.Render.PageSize = p.size
	}
	if p.orientation != "" {
		cfg.Render.Orientation = p.orientation
	}
	if p.margin != 0 {
		cfg.Render.Margin = p.margin
	}
	if p.fontSize != 0 {
		cfg.Render.FontSize = p.fontSize
	}

	// Limits
	if l.timeout != 0 {
		cfg.Limits.JobTimeout = l.timeout
	}
	if l.conversionTimeout != 0 {
		cfg.Converter.Timeout = l.conversionTimeout
	}
	if l.maxInputMB != 0 {
		cfg.Limits.MaxInputMB = l.maxInputMB
	}
}

// converterOptions translates a validated config into converter options.
// Zero fields keep the library defaults.
func converterOptions(cfg *config.Config, logger *slog.Logger) ([]epub2pdf.Option, error) {
	opts := []epub2pdf.Option{epub2pdf.WithLogger(logger)}

	if cfg.Render.Backend != "" {
		b, err := epub2pdf.ParseBackend(cfg.Render.Backend)
		if err != nil {
			return nil, err
		}
		opts = append(opts, epub2pdf.WithBackend(b))
	}

	tool := cliDefaultConverter
	if cfg.Converter.Tool != "" {
		k, err := epub2pdf.ParseHTMLConverter(cfg.Converter.Tool)
		if err != nil {
			return nil, err
		}
		tool = k
	}
	opts = append(opts, epub2pdf.WithHTMLConverter(tool))

	if cfg.Browser.Engine != "" {
		e, err := epub2pdf.ParseBrowserEngine(cfg.Browser.Engine)
		if err != nil {
			return nil, err
		}
		opts = append(opts, epub2pdf.WithBrowserEngine(e))
	}

	if page := pageSettings(cfg); page != nil {
		if err := page.Validate(); err != nil {
			return nil, err
		}
		opts = append(opts, epub2pdf.WithPage(page))
	}

	if cfg.Converter.PandocPath != "" {
		opts = append(opts, epub2pdf.WithPandocPath(cfg.Converter.PandocPath))
	}
	if cfg.Browser.Bin != "" {
		opts = append(opts, epub2pdf.WithBrowserBin(cfg.Browser.Bin))
	}
	if cfg.Browser.NoSandbox {
		opts = append(opts, epub2pdf.WithNoSandbox(true))
	}
	if len(cfg.Render.FontPaths) > 0 {
		opts = append(opts, epub2pdf.WithFontPaths(cfg.Render.FontPaths...))
	}
	if cfg.Render.Style != "" {
		opts = append(opts, epub2pdf.WithStyle(cfg.Render.Style))
	}
	if cfg.Limits.AssetsPath != "" {
		opts = append(opts, epub2pdf.WithAssetPath(cfg.Limits.AssetsPath))
	}
	if cfg.Limits.JobTimeout > 0 {
		opts = append(opts, epub2pdf.WithTimeout(cfg.Limits.JobTimeout))
	}
	if cfg.Converter.Timeout > 0 {
		opts = append(opts, epub2pdf.WithConversionTimeout(cfg.Converter.Timeout))
	}
	if cfg.Limits.MaxInputMB > 0 {
		opts = append(opts, epub2pdf.WithMaxInputSize(int64(cfg.Limits.MaxInputMB)<<20))
	}

	return opts, nil
}

// pageSettings returns the configured page layout over the defaults, or
// nil when every field is unset.
func pageSettings(cfg *config.Config) *epub2pdf.PageSettings {
	r := cfg.Render
	if r.PageSize == "" && r.Orientation == "" && r.Margin == 0 && r.FontSize == 0 {
		return nil
	}
	page := epub2pdf.DefaultPageSettings()
	if r.PageSize != "" {
		page.Size = strings.ToLower(r.PageSize)
	}
	if r.Orientation != "" {
		page.Orientation = strings.ToLower(r.Orientation)
	}
	if r.Margin != 0 {
		page.Margin = r.Margin
	}
	if r.FontSize != 0 {
		page.FontSize = r.FontSize
	}
	return page
}
