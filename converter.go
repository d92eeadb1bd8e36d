package epub2pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-epub2pdf/internal/assets"
	"github.com/alnah/go-epub2pdf/internal/fileutil"
	"github.com/alnah/go-epub2pdf/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ htmlConverter        = (*pandocConverter)(nil)
	_ htmlConverter        = (*epubConverter)(nil)
	_ renderer             = (*textRenderer)(nil)
	_ renderer             = (*unicodeRenderer)(nil)
	_ renderer             = (*htmlRenderer)(nil)
	_ pdfEngine            = (*rodEngine)(nil)
	_ pdfEngine            = (*chromedpEngine)(nil)
	_ pipeline.CSSInjector = (*pipeline.CSSInjection)(nil)
)

// Converter runs EPUB to PDF jobs.
// Create with NewConverter, use Convert for each upload, and Close when done.
// A Converter is safe for concurrent use: every job gets its own workspace
// and renderer, and only the browser engine is shared.
type Converter struct {
	cfg       converterConfig
	logger    *slog.Logger
	page      *PageSettings
	converter htmlConverter
	css       string
	engine    pdfEngine
	renderers map[Backend]renderer // injected, owned by the Converter

	mu     sync.Mutex
	closed bool
}

// NewConverter creates a Converter. The browser is not started until the
// first job that needs it.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:    defaultConfig(),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	if !c.cfg.backend.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.cfg.backend)
	}
	if c.cfg.maxInputSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxInputSize, c.cfg.maxInputSize)
	}

	page, err := resolvePage(c.cfg.page)
	if err != nil {
		return nil, err
	}
	c.page = page

	if c.converter == nil {
		c.converter, err = c.newHTMLConverter()
		if err != nil {
			return nil, err
		}
	}

	if err := c.resolveStyle(); err != nil {
		return nil, err
	}

	if c.engine == nil {
		c.engine, err = c.newEngine()
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Backend returns the backend used when Input.Backend is empty.
func (c *Converter) Backend() Backend {
	return c.cfg.backend
}

// Convert runs one job: intake, structural conversion, rendering, delivery.
// It returns either a Result or an error, never both. Every file the job
// created is removed before Convert returns, whatever the outcome.
// Stage failures are *StageError values. Panics are recovered into errors.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &StageError{Stage: StageUnknown, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	if c.isClosed() {
		return nil, ErrClosed
	}

	backend := c.cfg.backend
	if input.Backend != "" {
		if !input.Backend.Valid() {
			return nil, &StageError{Stage: StageIntake, Err: fmt.Errorf("%w: %q", ErrUnknownBackend, input.Backend)}
		}
		backend = input.Backend
	}

	if err := c.validateInput(input); err != nil {
		return nil, &StageError{Stage: StageIntake, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	j, err := newJob(c.cfg.tempDir, backend)
	if err != nil {
		return nil, &StageError{Stage: StageIntake, Err: err}
	}
	log := c.logger.With("job_id", j.id, "backend", backend.String())
	defer func() {
		if terr := j.teardown(); terr != nil {
			log.Warn("job teardown incomplete", "error", terr)
		}
	}()

	start := time.Now()
	res, err := c.run(ctx, j, input, log)
	if err != nil {
		log.Debug("job failed", "stage", StageOf(err).String(), "duration", time.Since(start), "error", err)
		return nil, err
	}
	log.Debug("job finished", "pages", res.Pages, "duration", time.Since(start))
	return res, nil
}

// ConvertFile reads an EPUB from disk and converts it.
func (c *Converter) ConvertFile(ctx context.Context, path string, backend Backend) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &StageError{Stage: StageIntake, Err: fmt.Errorf("%w: %v", ErrIO, err)}
	}
	if info.Size() > c.cfg.maxInputSize {
		return nil, &StageError{Stage: StageIntake, Err: c.tooLarge(info.Size())}
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided input file
	if err != nil {
		return nil, &StageError{Stage: StageIntake, Err: fmt.Errorf("%w: %v", ErrIO, err)}
	}
	return c.Convert(ctx, Input{Filename: path, Data: data, Backend: backend})
}

// Close releases the browser and any injected renderers.
// Jobs started after Close fail with ErrClosed.
func (c *Converter) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	if c.engine != nil {
		errs = append(errs, c.engine.Close())
	}
	for _, r := range c.renderers {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

func (c *Converter) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// run executes the stages in order. The caller owns teardown.
func (c *Converter) run(ctx context.Context, j *job, input Input, log *slog.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageIntake, Err: err}
	}
	if err := j.writeInput(input.Data); err != nil {
		return nil, &StageError{Stage: StageIntake, Err: err}
	}
	log.Debug("stage complete", "stage", StageIntake.String(), "bytes", len(input.Data))

	if err := c.convertStructure(ctx, j); err != nil {
		return nil, &StageError{Stage: StageConversion, Err: err}
	}
	log.Debug("stage complete", "stage", StageConversion.String())

	report, err := c.render(ctx, j, log)
	if err != nil {
		return nil, &StageError{Stage: StageRendering, Err: err}
	}
	log.Debug("stage complete", "stage", StageRendering.String(), "pages", report.pages, "issues", len(report.issues))

	data, err := os.ReadFile(j.pdfPath)
	if err != nil {
		return nil, &StageError{Stage: StageDelivery, Err: fmt.Errorf("%w: reading PDF: %v", ErrIO, err)}
	}

	res := &Result{
		Filename:  fileutil.PDFName(input.Filename),
		MediaType: MediaTypePDF,
		PDF:       data,
		Pages:     report.pages,
		Title:     report.title,
		Backend:   j.backend,
	}
	if len(report.issues) > 0 {
		res.Warnings = &PartialRenderError{Issues: report.issues}
		log.Info("rendered with missing resources", "issues", len(report.issues))
	}
	return res, nil
}

// convertStructure turns input.epub into book.html under the conversion deadline.
func (c *Converter) convertStructure(ctx context.Context, j *job) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConversion, err)
	}

	convCtx, cancel := context.WithTimeout(ctx, c.cfg.conversionTimeout)
	defer cancel()

	htmlPath := j.path(htmlFileName)
	j.path(mediaDirName)

	if err := c.converter.ToHTML(convCtx, j.inputPath, htmlPath); err != nil {
		_ = os.Remove(htmlPath)
		if !errors.Is(err, ErrConversion) {
			err = fmt.Errorf("%w: %w", ErrConversion, err)
		}
		if ctxErr := convCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		return err
	}

	j.htmlPath = htmlPath
	return nil
}

// render runs the job's backend into book.pdf.
func (c *Converter) render(ctx context.Context, j *job, log *slog.Logger) (*renderReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	r, owned, err := c.rendererFor(j.backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if owned {
		defer func() {
			if cerr := r.Close(); cerr != nil {
				log.Warn("renderer close failed", "error", cerr)
			}
		}()
	}

	outputPath := j.path(pdfFileName)
	report, err := renderInto(ctx, r, newRenderSource(j, c.page), outputPath)
	if err != nil {
		return nil, err
	}
	j.pdfPath = outputPath
	return report, nil
}

// rendererFor builds the renderer for b. owned reports whether the caller
// must close it; injected renderers are closed by Converter.Close.
func (c *Converter) rendererFor(b Backend) (r renderer, owned bool, err error) {
	if injected, ok := c.renderers[b]; ok {
		return injected, false, nil
	}
	switch b {
	case BackendText:
		return &textRenderer{page: c.page}, true, nil
	case BackendUnicode:
		return newUnicodeRenderer(c.page, c.cfg.fontPaths), true, nil
	case BackendHTML, BackendHTMLNoImages:
		return &htmlRenderer{
			engine:   c.engine,
			injector: &pipeline.CSSInjection{},
			css:      c.css,
			page:     c.page,
			noImages: b == BackendHTMLNoImages,
		}, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
}

// validateInput checks the payload before a workspace is created.
func (c *Converter) validateInput(input Input) error {
	if len(input.Data) == 0 {
		return ErrEmptyInput
	}
	if n := int64(len(input.Data)); n > c.cfg.maxInputSize {
		return c.tooLarge(n)
	}
	return nil
}

func (c *Converter) tooLarge(n int64) error {
	return fmt.Errorf("%w: %d bytes (limit %d)", ErrInputTooLarge, n, c.cfg.maxInputSize)
}

// newHTMLConverter builds the configured structural converter.
func (c *Converter) newHTMLConverter() (htmlConverter, error) {
	switch c.cfg.htmlConverter {
	case ConverterPandoc:
		return newPandocConverter(c.cfg.pandocPath), nil
	case ConverterBuiltin:
		return &epubConverter{}, nil
	case ConverterAuto:
		if pandocAvailable(c.cfg.pandocPath) {
			return newPandocConverter(c.cfg.pandocPath), nil
		}
		c.logger.Debug("pandoc not found, using built-in converter")
		return &epubConverter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, c.cfg.htmlConverter)
	}
}

// newEngine builds the configured browser engine. Nothing is launched yet.
func (c *Converter) newEngine() (pdfEngine, error) {
	bc := browserConfig{bin: c.cfg.browserBin, noSandbox: c.cfg.noSandbox, timeout: c.cfg.timeout}
	switch c.cfg.engine {
	case EngineRod:
		return newRodEngine(bc), nil
	case EngineChromedp:
		return newChromedpEngine(bc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, c.cfg.engine)
	}
}

// resolveStyle resolves the style option (name, path, or CSS content) to CSS.
func (c *Converter) resolveStyle() error {
	input := c.cfg.style
	if input == "" {
		input = assets.DefaultStyleName
	}

	// File path? (contains / or \)
	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrStyleLoad, input, err)
		}
		c.css = string(content)
		return nil
	}

	// CSS content? (contains {)
	if strings.Contains(input, "{") {
		c.css = input
		return nil
	}

	var loader assets.AssetLoader = assets.NewEmbeddedLoader()
	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		loader = resolver
	}

	css, err := loader.LoadStyle(input)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrStyleLoad, input, err)
	}
	c.css = css
	return nil
}

// resolvePage fills zero fields of p with defaults and validates the result.
func resolvePage(p *PageSettings) (*PageSettings, error) {
	page := DefaultPageSettings()
	if p == nil {
		return page, nil
	}
	if p.Size != "" {
		page.Size = p.Size
	}
	if p.Orientation != "" {
		page.Orientation = p.Orientation
	}
	if p.Margin != 0 {
		page.Margin = p.Margin
	}
	if p.FontSize != 0 {
		page.FontSize = p.FontSize
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}
