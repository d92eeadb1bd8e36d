package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/config"
	"github.com/alnah/go-epub2pdf/internal/fileutil"
	"github.com/alnah/go-epub2pdf/internal/hints"
	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"
)

// Sample texts used to probe font coverage.
const (
	cjkSample   = "日本語の本"
	latinSample = "Ελληνικά Кириллица"
)

// doctorProbeTimeout bounds each external command run by doctor.
const doctorProbeTimeout = 10 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Pandoc   pandocInfo `json:"pandoc"`
	Chrome   chromeInfo `json:"chrome"`
	Font     fontInfo   `json:"font"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// pandocInfo holds pandoc detection results.
type pandocInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// fontInfo holds the first font usable by the unicode backend.
type fontInfo struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
	CJK   bool   `json:"cjk"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	Backend       string `json:"backend"`
	Converter     string `json:"converter"`
	Engine        string `json:"engine"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempDir      string `json:"temp_dir"`
	TempWritable bool   `json:"temp_writable"`
}

// doctorDeps holds the probes doctor runs, replaced in tests.
type doctorDeps struct {
	pandocVersion func(ctx context.Context, path string) (string, error)
	lookChrome    func() (string, bool)
	chromeVersion func(ctx context.Context, path string) (string, error)
	findFont      func(sample string, extra ...string) (string, error)
	getenv        func(string) string
	tempDir       string
}

// defaultDoctorDeps returns the production probes.
func defaultDoctorDeps(getenv func(string) string) doctorDeps {
	return doctorDeps{
		pandocVersion: epub2pdf.PandocVersion,
		lookChrome:    launcher.LookPath,
		chromeVersion: chromeVersion,
		findFont:      epub2pdf.FindFont,
		getenv:        getenv,
		tempDir:       os.TempDir(),
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printDoctorUsage(env.Stdout)
			return ExitSuccess
		}
		return report(env, fmt.Errorf("%w: %v", ErrUsage, err))
	}

	cfg, _, err := loadSettings(flags.common, env)
	if err != nil {
		return report(env, err)
	}

	result := runDoctor(ctx, cfg, defaultDoctorDeps(env.Getenv))

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks against the effective config.
func runDoctor(ctx context.Context, cfg *config.Config, deps doctorDeps) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Backend:   orDefault(cfg.Render.Backend, string(epub2pdf.DefaultBackend)),
			Converter: orDefault(cfg.Converter.Tool, string(cliDefaultConverter)),
			Engine:    orDefault(cfg.Browser.Engine, string(epub2pdf.EngineRod)),
		},
	}

	checkPandoc(ctx, cfg, deps, result)
	checkChrome(ctx, cfg, deps, result)
	checkFont(cfg, deps, result)
	checkEnvironment(cfg, deps, result)
	checkSystem(deps, result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkPandoc runs pandoc --version. A missing pandoc is only an error when
// the converter is pinned to pandoc.
func checkPandoc(ctx context.Context, cfg *config.Config, deps doctorDeps, result *doctorResult) {
	path := orDefault(cfg.Converter.PandocPath, epub2pdf.DefaultPandocPath)
	result.Pandoc.Path = path

	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	version, err := deps.pandocVersion(ctx, path)
	if err != nil {
		msg := fmt.Sprintf("pandoc not usable at %s: %v", path, err)
		if result.Env.Converter == string(epub2pdf.ConverterPandoc) {
			result.Errors = append(result.Errors, msg+". Install pandoc or set "+hints.EnvPandocPath)
		} else {
			result.Warnings = append(result.Warnings, msg+". The built-in converter will be used")
		}
		return
	}

	result.Pandoc.Found = true
	result.Pandoc.Version = version
}

// checkChrome detects Chrome/Chromium installation.
// rod downloads a managed Chromium when none is found, so a missing browser
// is fatal only for chromedp or a configured path that does not exist.
func checkChrome(ctx context.Context, cfg *config.Config, deps doctorDeps, result *doctorResult) {
	backend, err := epub2pdf.ParseBackend(result.Env.Backend)
	needed := err == nil && backend.UsesBrowser()

	chromePath := cfg.Browser.Bin
	if chromePath == "" {
		var found bool
		chromePath, found = deps.lookChrome()
		if !found {
			msg := "Chrome/Chromium not found. Install Chrome or set " + hints.EnvBrowserBin
			switch {
			case needed && result.Env.Engine == string(epub2pdf.EngineChromedp):
				result.Errors = append(result.Errors, msg)
			case needed:
				result.Warnings = append(result.Warnings, msg+" (rod will download Chromium on first use)")
			}
			return
		}
	}

	// Verify it exists
	if _, err := os.Stat(chromePath); err != nil {
		msg := fmt.Sprintf("Chrome not found at %s", chromePath)
		if needed {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Sandbox = !cfg.Browser.NoSandbox

	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	if v, err := deps.chromeVersion(ctx, chromePath); err == nil {
		result.Chrome.Version = v
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
	}
}

// checkFont looks for the first font the unicode backend can embed.
func checkFont(cfg *config.Config, deps doctorDeps, result *doctorResult) {
	if path, err := deps.findFont(cjkSample, cfg.Render.FontPaths...); err == nil {
		result.Font = fontInfo{Found: true, Path: path, CJK: true}
		return
	}

	unicodeBackend := result.Env.Backend == string(epub2pdf.BackendUnicode)
	path, err := deps.findFont(latinSample, cfg.Render.FontPaths...)
	if err != nil {
		msg := "No TrueType font found for the unicode backend. Pass --font or set " + hints.EnvFontPaths
		if unicodeBackend {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
		return
	}

	result.Font = fontInfo{Found: true, Path: path}
	result.Warnings = append(result.Warnings,
		"No CJK font found. Chinese, Japanese and Korean text will fail with the unicode backend")
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(cfg *config.Config, deps doctorDeps, result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer(deps.getenv)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if deps.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	// Warn if container/CI without sandbox disabled
	if (result.Env.Container || result.Env.CI) && !cfg.Browser.NoSandbox && result.Chrome.Found {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the Chrome sandbox is enabled. Set "+hints.EnvNoSandbox+"=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("EPUB2PDF_CONTAINER") == "1" {
		return true, "EPUB2PDF_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the job workspace root is writable.
func checkSystem(deps doctorDeps, result *doctorResult) {
	result.System.TempDir = deps.tempDir
	_, cleanup, err := fileutil.WriteTempFile(deps.tempDir, "ok", "tmp")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", deps.tempDir))
		return
	}
	cleanup()
	result.System.TempWritable = true
}

// chromeVersion runs chrome --version.
func chromeVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- detected browser path
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return strings.ToLower(v)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "epub2pdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Pandoc")
	if r.Pandoc.Found {
		fmt.Fprintf(w, "  [OK] %s (%s)\n", r.Pandoc.Version, r.Pandoc.Path)
	} else {
		fmt.Fprintf(w, "  [WARN] Not found (%s)\n", r.Pandoc.Path)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Unicode font")
	switch {
	case r.Font.Found && r.Font.CJK:
		fmt.Fprintf(w, "  [OK] %s (covers CJK)\n", r.Font.Path)
	case r.Font.Found:
		fmt.Fprintf(w, "  [WARN] %s (no CJK coverage)\n", r.Font.Path)
	default:
		fmt.Fprintln(w, "  [WARN] None found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	fmt.Fprintf(w, "  [OK] Backend: %s, converter: %s, engine: %s\n", r.Env.Backend, r.Env.Converter, r.Env.Engine)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintf(w, "  [OK] Temp directory: %s writable\n", r.System.TempDir)
	} else {
		fmt.Fprintf(w, "  [ERROR] Temp directory: %s not writable\n", r.System.TempDir)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
