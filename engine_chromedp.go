package epub2pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromedpEngine implements pdfEngine using chromedp. The browser is
// started on first use and every render runs in its own tab.
type chromedpEngine struct {
	cfg browserConfig

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// loadPollInterval paces the document.readyState check after navigation.
const loadPollInterval = 50 * time.Millisecond

func newChromedpEngine(cfg browserConfig) *chromedpEngine {
	return &chromedpEngine{cfg: cfg}
}

// ensureBrowser lazily starts Chrome and returns the browser context.
func (e *chromedpEngine) ensureBrowser() (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx := e.liveBrowserLocked(); ctx != nil {
		return ctx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if e.cfg.bin != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.bin))
	}
	if e.cfg.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.browserCtx = browserCtx
	e.browserCancel = browserCancel
	e.allocCancel = allocCancel
	return browserCtx, nil
}

// liveBrowserLocked returns the running browser context. A context whose
// browser exited or crashed is torn down so the next job relaunches.
// Callers hold e.mu.
func (e *chromedpEngine) liveBrowserLocked() context.Context {
	if e.browserCtx == nil {
		return nil
	}
	if e.browserCtx.Err() != nil {
		_ = e.closeLocked()
		return nil
	}
	return e.browserCtx
}

// RenderFromFile opens a local HTML file in a new tab, audits it and prints it.
func (e *chromedpEngine) RenderFromFile(ctx context.Context, filePath string, opts *pdfOptions) (*engineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout, err := remaining(ctx, e.cfg.timeout)
	if err != nil {
		return nil, err
	}

	browserCtx, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()
	// The tab lives under the browser context; tie it to the job as well.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(fileURL(filePath)),
		waitDocumentComplete(),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	expr, err := auditExpression(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	var raw string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(expr, &raw)); err != nil {
		return nil, fmt.Errorf("%w: auditing page: %v", ErrPageLoad, err)
	}
	audit, err := parseAudit(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	var buf []byte
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPaperWidth(opts.PaperWidth).
			WithPaperHeight(opts.PaperHeight).
			WithMarginTop(opts.Margin).
			WithMarginRight(opts.Margin).
			WithMarginBottom(opts.Margin).
			WithMarginLeft(opts.Margin).
			WithPrintBackground(true).
			Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	return &engineOutput{
		PDF:          buf,
		BrokenImages: audit.Broken,
		Unsupported:  audit.Unsupported,
	}, nil
}

// Close shuts the browser down. Cancelling the allocator kills the process.
func (e *chromedpEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked()
}

func (e *chromedpEngine) closeLocked() error {
	if e.browserCtx == nil {
		return nil
	}
	var err error
	if e.browserCtx.Err() == nil {
		err = chromedp.Cancel(e.browserCtx)
	}
	e.browserCancel()
	e.allocCancel()
	e.browserCtx = nil
	e.browserCancel = nil
	e.allocCancel = nil
	return err
}

// waitDocumentComplete blocks until the load event has fired, so images
// have either loaded or failed before the audit runs.
func waitDocumentComplete() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var state string
			if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
				return err
			}
			if state == "complete" {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(loadPollInterval):
			}
		}
	})
}

// auditExpression embeds the declarations as a JSON literal, since
// Evaluate takes no arguments.
func auditExpression(opts *pdfOptions) (string, error) {
	args, err := json.Marshal(auditArgs(opts.Declarations))
	if err != nil {
		return "", err
	}
	return "(" + auditJS + ")(" + string(args) + ")", nil
}
