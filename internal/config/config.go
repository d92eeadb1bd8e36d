package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alnah/go-epub2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// configDirName is the directory searched under os.UserConfigDir.
const configDirName = "go-epub2pdf"

// Field length limits.
const (
	MaxPathLength        = 4096
	MaxAddrLength        = 255
	MaxOriginLength      = 2048
	MaxEnumLength        = 20
	MaxFontPaths         = 32
	MaxAllowedOrigins    = 32
	MaxUploadMBLimit     = 1024
	MaxConcurrentLimit   = 64
	MaxJobTimeout        = time.Hour
	MaxConversionTimeout = time.Hour
)

// Accepted enum values. Kept in sync with the epub2pdf package.
var (
	validConverterTools = []string{"", "auto", "pandoc", "builtin"}
	validBackends       = []string{"", "text", "unicode", "html", "html-noimages"}
	validEngines        = []string{"", "rod", "chromedp"}
	validPageSizes      = []string{"", "letter", "a4", "legal"}
	validOrientations   = []string{"", "portrait", "landscape"}
)

// Config holds all configuration for the converter and its front ends.
// Zero values mean "use the library default".
type Config struct {
	Converter ConverterConfig `yaml:"converter"`
	Render    RenderConfig    `yaml:"render"`
	Browser   BrowserConfig   `yaml:"browser"`
	Server    ServerConfig    `yaml:"server"`
	Limits    LimitsConfig    `yaml:"limits"`
	Output    OutputConfig    `yaml:"output"`
}

// ConverterConfig selects the EPUB to HTML tool.
type ConverterConfig struct {
	Tool       string        `yaml:"tool"`       // "auto", "pandoc", "builtin"
	PandocPath string        `yaml:"pandocPath"` // empty = "pandoc" from PATH
	Timeout    time.Duration `yaml:"timeout"`    // structural conversion budget
}

// RenderConfig defines the rendering backend and page layout.
type RenderConfig struct {
	Backend     string   `yaml:"backend"`     // "text", "unicode", "html", "html-noimages"
	Style       string   `yaml:"style"`       // print stylesheet name for the html backends
	PageSize    string   `yaml:"pageSize"`    // "letter", "a4", "legal"
	Orientation string   `yaml:"orientation"` // "portrait", "landscape"
	Margin      float64  `yaml:"margin"`      // inches
	FontSize    float64  `yaml:"fontSize"`    // points, text backends only
	FontPaths   []string `yaml:"fontPaths"`   // TrueType candidates for unicode
}

// BrowserConfig defines the headless browser used by the html backends.
type BrowserConfig struct {
	Engine    string `yaml:"engine"` // "rod", "chromedp"
	Bin       string `yaml:"bin"`    // empty = auto-detect
	NoSandbox bool   `yaml:"noSandbox"`
}

// ServerConfig defines the HTTP front end.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadMB    int      `yaml:"maxUploadMB"`
	MaxConcurrent  int      `yaml:"maxConcurrent"`
	RatePerSecond  float64  `yaml:"ratePerSecond"`
	Burst          int      `yaml:"burst"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LimitsConfig bounds each job.
type LimitsConfig struct {
	JobTimeout time.Duration `yaml:"jobTimeout"`
	MaxInputMB int           `yaml:"maxInputMB"`
	AssetsPath string        `yaml:"assetsPath"` // custom styles/templates; empty = embedded
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir string `yaml:"dir"` // empty = next to the source file
}

// Validate checks enums, ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	enums := []struct {
		field, value string
		allowed      []string
	}{
		{"converter.tool", c.Converter.Tool, validConverterTools},
		{"render.backend", c.Render.Backend, validBackends},
		{"render.pageSize", c.Render.PageSize, validPageSizes},
		{"render.orientation", c.Render.Orientation, validOrientations},
		{"browser.engine", c.Browser.Engine, validEngines},
	}
	for _, e := range enums {
		if err := validateEnum(e.field, e.value, e.allowed); err != nil {
			return err
		}
	}

	paths := []struct{ field, value string }{
		{"converter.pandocPath", c.Converter.PandocPath},
		{"browser.bin", c.Browser.Bin},
		{"limits.assetsPath", c.Limits.AssetsPath},
		{"output.dir", c.Output.Dir},
	}
	for _, p := range paths {
		if err := validateFieldLength(p.field, p.value, MaxPathLength); err != nil {
			return err
		}
	}
	if err := validateFieldLength("render.style", c.Render.Style, MaxEnumLength*3); err != nil {
		return err
	}

	if len(c.Render.FontPaths) > MaxFontPaths {
		return fmt.Errorf("%w: render.fontPaths has %d entries (max %d)", ErrInvalidValue, len(c.Render.FontPaths), MaxFontPaths)
	}
	for i, p := range c.Render.FontPaths {
		if err := validateFieldLength(fmt.Sprintf("render.fontPaths[%d]", i), p, MaxPathLength); err != nil {
			return err
		}
	}

	// Page margin and font size ranges mirror the epub2pdf package bounds.
	if c.Render.Margin != 0 && (c.Render.Margin < 0.25 || c.Render.Margin > 3.0) {
		return fmt.Errorf("%w: render.margin must be between 0.25 and 3.0, got %.2f", ErrInvalidValue, c.Render.Margin)
	}
	if c.Render.FontSize != 0 && (c.Render.FontSize < 6 || c.Render.FontSize > 36) {
		return fmt.Errorf("%w: render.fontSize must be between 6 and 36, got %.1f", ErrInvalidValue, c.Render.FontSize)
	}

	if err := validateDuration("converter.timeout", c.Converter.Timeout, MaxConversionTimeout); err != nil {
		return err
	}
	if err := validateDuration("limits.jobTimeout", c.Limits.JobTimeout, MaxJobTimeout); err != nil {
		return err
	}
	if c.Limits.MaxInputMB < 0 || c.Limits.MaxInputMB > MaxUploadMBLimit {
		return fmt.Errorf("%w: limits.maxInputMB must be between 0 and %d, got %d", ErrInvalidValue, MaxUploadMBLimit, c.Limits.MaxInputMB)
	}

	return c.Server.validate()
}

func (s *ServerConfig) validate() error {
	if err := validateFieldLength("server.addr", s.Addr, MaxAddrLength); err != nil {
		return err
	}
	if s.MaxUploadMB < 0 || s.MaxUploadMB > MaxUploadMBLimit {
		return fmt.Errorf("%w: server.maxUploadMB must be between 0 and %d, got %d", ErrInvalidValue, MaxUploadMBLimit, s.MaxUploadMB)
	}
	if s.MaxConcurrent < 0 || s.MaxConcurrent > MaxConcurrentLimit {
		return fmt.Errorf("%w: server.maxConcurrent must be between 0 and %d, got %d", ErrInvalidValue, MaxConcurrentLimit, s.MaxConcurrent)
	}
	if s.RatePerSecond < 0 {
		return fmt.Errorf("%w: server.ratePerSecond cannot be negative", ErrInvalidValue)
	}
	if s.Burst < 0 {
		return fmt.Errorf("%w: server.burst cannot be negative", ErrInvalidValue)
	}
	if len(s.AllowedOrigins) > MaxAllowedOrigins {
		return fmt.Errorf("%w: server.allowedOrigins has %d entries (max %d)", ErrInvalidValue, len(s.AllowedOrigins), MaxAllowedOrigins)
	}
	for i, o := range s.AllowedOrigins {
		if err := validateFieldLength(fmt.Sprintf("server.allowedOrigins[%d]", i), o, MaxOriginLength); err != nil {
			return err
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateEnum(fieldName, value string, allowed []string) error {
	if err := validateFieldLength(fieldName, value, MaxEnumLength); err != nil {
		return err
	}
	if !slices.Contains(allowed, strings.ToLower(value)) {
		return fmt.Errorf("%w: %s %q (must be one of %s)", ErrInvalidValue, fieldName, value, strings.Join(allowed[1:], ", "))
	}
	return nil
}

func validateDuration(fieldName string, d, maxDuration time.Duration) error {
	if d < 0 || d > maxDuration {
		return fmt.Errorf("%w: %s must be between 0 and %s, got %s", ErrInvalidValue, fieldName, maxDuration, d)
	}
	return nil
}

// DefaultConfig returns a configuration where every field defers to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-epub2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, configDirName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
