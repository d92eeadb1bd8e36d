package epub2pdf

import (
	"fmt"
	"strings"
)

// Backend selects the renderer that turns the intermediate HTML into a PDF.
type Backend string

// Rendering backends.
const (
	// BackendText lays out the plain-text projection with a built-in Latin font.
	BackendText Backend = "text"
	// BackendUnicode lays out the plain-text projection with an embedded
	// TrueType font that covers every character, wrapping lines manually.
	BackendUnicode Backend = "unicode"
	// BackendHTML renders the HTML with CSS and images in headless Chrome.
	BackendHTML Backend = "html"
	// BackendHTMLNoImages renders the HTML in headless Chrome after removing images.
	BackendHTMLNoImages Backend = "html-noimages"
)

// DefaultBackend is used when no backend is configured.
const DefaultBackend = BackendHTML

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{BackendText, BackendUnicode, BackendHTML, BackendHTMLNoImages}
}

// ParseBackend resolves a backend tag case-insensitively.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, s, joinBackends())
	}
	return b, nil
}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	switch b {
	case BackendText, BackendUnicode, BackendHTML, BackendHTMLNoImages:
		return true
	default:
		return false
	}
}

func (b Backend) String() string {
	return string(b)
}

// UsesBrowser reports whether the backend needs headless Chrome.
func (b Backend) UsesBrowser() bool {
	return b == BackendHTML || b == BackendHTMLNoImages
}

func joinBackends() string {
	names := make([]string, 0, 4)
	for _, b := range Backends() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

// HTMLConverterKind selects the EPUB to HTML converter.
type HTMLConverterKind string

// Structural converters.
const (
	ConverterPandoc  HTMLConverterKind = "pandoc"
	ConverterBuiltin HTMLConverterKind = "builtin"
	// ConverterAuto uses pandoc when it is on PATH and the built-in converter otherwise.
	ConverterAuto HTMLConverterKind = "auto"
)

// ParseHTMLConverter resolves a converter name case-insensitively.
func ParseHTMLConverter(s string) (HTMLConverterKind, error) {
	k := HTMLConverterKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case ConverterPandoc, ConverterBuiltin, ConverterAuto:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (want pandoc, builtin or auto)", ErrUnknownConverter, s)
	}
}

// BrowserEngine selects the Chrome DevTools client used by the HTML backends.
type BrowserEngine string

// Browser engines.
const (
	EngineRod      BrowserEngine = "rod"
	EngineChromedp BrowserEngine = "chromedp"
)

// ParseBrowserEngine resolves an engine name case-insensitively.
func ParseBrowserEngine(s string) (BrowserEngine, error) {
	e := BrowserEngine(strings.ToLower(strings.TrimSpace(s)))
	switch e {
	case EngineRod, EngineChromedp:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q (want rod or chromedp)", ErrUnknownEngine, s)
	}
}
