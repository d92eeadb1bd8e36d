package epub2pdf

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// rodEngine implements pdfEngine using go-rod.
// Rod downloads Chromium on first run if no browser binary is configured
// and none is found on the host.
type rodEngine struct {
	cfg browserConfig

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func newRodEngine(cfg browserConfig) *rodEngine {
	return &rodEngine{cfg: cfg}
}

// ensureBrowser lazily launches and connects to the browser.
func (e *rodEngine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New()
	if e.cfg.bin != "" {
		l = l.Bin(e.cfg.bin)
	}
	if e.cfg.noSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.launcher = l
	e.browser = browser
	return browser, nil
}

// RenderFromFile opens a local HTML file in a new tab, audits it and prints it.
// Returns explicit errors instead of panicking when browser operations fail.
func (e *rodEngine) RenderFromFile(ctx context.Context, filePath string, opts *pdfOptions) (*engineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout, err := remaining(ctx, e.cfg.timeout)
	if err != nil {
		return nil, err
	}

	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tab, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		// A crashed browser cannot create tabs; relaunch on the next job.
		e.reset()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = tab.Close() }()

	page := tab.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(fileURL(filePath)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	res, err := page.Eval(auditJS, auditArgs(opts.Declarations))
	if err != nil {
		return nil, fmt.Errorf("%w: auditing page: %v", ErrPageLoad, err)
	}
	audit, err := parseAudit(res.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.PDF(buildRodPrintOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}

	return &engineOutput{
		PDF:          pdfBuf,
		BrokenImages: audit.Broken,
		Unsupported:  audit.Unsupported,
	}, nil
}

// Close releases browser resources and kills the browser process group.
func (e *rodEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked()
}

func (e *rodEngine) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.closeLocked()
}

func (e *rodEngine) closeLocked() error {
	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Kill()
		e.launcher.Cleanup()
		e.launcher = nil
	}
	return err
}

// buildRodPrintOptions constructs proto.PagePrintToPDF from engine options.
func buildRodPrintOptions(opts *pdfOptions) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(opts.PaperWidth),
		PaperHeight:     floatPtr(opts.PaperHeight),
		MarginTop:       floatPtr(opts.Margin),
		MarginBottom:    floatPtr(opts.Margin),
		MarginLeft:      floatPtr(opts.Margin),
		MarginRight:     floatPtr(opts.Margin),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
