package main

import (
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	quiet     bool
	verbose   bool
	logFormat string
}

// renderFlags selects the tools and backend of each job.
type renderFlags struct {
	backend    string
	converter  string
	engine     string
	pandoc     string
	browserBin string
	noSandbox  bool
	fonts      []string
	style      string
	assetPath  string
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
	fontSize    float64
}

// limitFlags bounds each job.
type limitFlags struct {
	timeout           time.Duration
	conversionTimeout time.Duration
	maxInputMB        int
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common  commonFlags
	output  string
	workers int
	render  renderFlags
	page    pageFlags
	limits  limitFlags
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common        commonFlags
	addr          string
	maxConcurrent int
	maxUploadMB   int
	rate          float64
	burst         int
	origins       []string
	render        renderFlags
	page          pageFlags
	limits        limitFlags
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
}

// addRenderFlags adds backend and tool selection flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVarP(&f.backend, "backend", "b", "", "backend: text, unicode, html, html-noimages")
	fs.StringVar(&f.converter, "converter", "", "EPUB to HTML converter: pandoc, builtin, auto")
	fs.StringVar(&f.engine, "engine", "", "browser engine: rod, chromedp")
	fs.StringVar(&f.pandoc, "pandoc", "", "pandoc executable")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Chromium executable")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers)")
	fs.StringArrayVar(&f.fonts, "font", nil, "TrueType font for the unicode backend (repeatable)")
	fs.StringVar(&f.style, "style", "", "print stylesheet for the html backends")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory with custom styles and templates")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "margin in inches (0.25-3.0)")
	fs.Float64Var(&f.fontSize, "font-size", 0, "text size in points for the text backends (6-36)")
}

// addLimitFlags adds per-job limits to a FlagSet.
func addLimitFlags(fs *flag.FlagSet, f *limitFlags) {
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "job timeout (e.g. 2m)")
	fs.DurationVar(&f.conversionTimeout, "conversion-timeout", 0, "EPUB to HTML timeout")
	fs.IntVar(&f.maxInputMB, "max-input-mb", 0, "largest accepted EPUB in MB")
}

// buildConvertFlagSet registers every convert flag into f.
func buildConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // help and errors are printed by the caller

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addPageFlags(fs, &f.page)
	addLimitFlags(fs, &f.limits)

	return fs
}

// buildServeFlagSet registers every serve flag into f.
func buildServeFlagSet(f *serveFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // help and errors are printed by the caller

	fs.StringVar(&f.addr, "addr", "", "listen address (default :8080)")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", 0, "jobs run at once (0 = auto)")
	fs.IntVar(&f.maxUploadMB, "max-upload-mb", 0, "largest accepted upload in MB")
	fs.Float64Var(&f.rate, "rate", 0, "uploads per second per client (0 = unlimited)")
	fs.IntVar(&f.burst, "burst", 0, "upload burst per client")
	fs.StringSliceVar(&f.origins, "allowed-origin", nil, "CORS origin allowed to call the API (repeatable)")

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addPageFlags(fs, &f.page)
	addLimitFlags(fs, &f.limits)

	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := buildConvertFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string) (*serveFlags, error) {
	f := &serveFlags{}
	fs := buildServeFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, ErrUnexpectedArgs
	}
	return f, nil
}

// buildDoctorFlagSet registers every doctor flag into f.
func buildDoctorFlagSet(f *doctorFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // help and errors are printed by the caller
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	addCommonFlags(fs, &f.common)
	return fs
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := buildDoctorFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
