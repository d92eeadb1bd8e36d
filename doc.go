// Package epub2pdf converts EPUB books to PDF.
//
// # Quick Start
//
// Create a converter, convert an upload, and close when done:
//
//	conv, err := epub2pdf.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	data, _ := os.ReadFile("book.epub")
//	result, err := conv.Convert(ctx, epub2pdf.Input{
//	    Filename: "book.epub",
//	    Data:     data,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.WriteFile(result.Filename) // "book.pdf"
//
// # Conversion Pipeline
//
// Every call to Convert is one job, run in a fresh working directory:
//
//  1. Intake: the EPUB bytes are written verbatim to the workspace
//  2. Structural conversion: EPUB to HTML via pandoc or the built-in converter
//  3. Rendering: one backend turns the HTML into a PDF
//  4. Delivery: the PDF bytes are read into the Result
//
// The workspace and everything in it is removed before Convert returns,
// on success, failure, cancellation or panic.
//
// # Backends
//
//	text           plain text, built-in Helvetica (Latin only)
//	unicode        plain text, embedded TrueType font covering every character
//	html           HTML and CSS in headless Chrome, with images (default)
//	html-noimages  same as html with images removed
//
// Select a default with WithBackend, or per job with Input.Backend.
//
// # Errors
//
// Stage failures are *StageError values; use StageOf or errors.As to get the
// stage and errors.Is to classify the cause:
//
//	ErrIO                   filesystem failure
//	ErrConversion           the EPUB could not be converted to HTML
//	ErrRender               the backend failed; no PDF exists
//	ErrFontResourceMissing  no font covers the document text (unicode backend)
//
// Missing images and unsupported style rules do not fail a job:
// Result.Warnings holds a *PartialRenderError matching ErrRenderPartial.
//
// # Parallel Processing
//
// For batch conversion, use ConverterPool to bound concurrent jobs:
//
//	pool := epub2pdf.NewConverterPool(4, epub2pdf.WithBackend(epub2pdf.BackendUnicode))
//	defer pool.Close()
//
//	conv, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
//	result, err := conv.Convert(ctx, input)
//
// # External Requirements
//
// The pandoc converter needs pandoc on PATH (or WithPandocPath). Use
// WithHTMLConverter(ConverterBuiltin) to convert in-process instead.
//
// The HTML backends need Chrome/Chromium. The go-rod engine downloads a
// managed Chromium on first run (~/.cache/rod/browser/). Use WithBrowserBin
// for a pre-installed browser and WithNoSandbox in containers.
package epub2pdf
