package epub2pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-epub2pdf/internal/process"
)

// DefaultPandocPath is looked up on PATH when no explicit path is configured.
const DefaultPandocPath = "pandoc"

// maxStderrBytes caps converter diagnostics carried in errors.
const maxStderrBytes = 4 << 10

// killWaitDelay bounds how long Wait blocks on inherited pipes after a kill.
const killWaitDelay = 5 * time.Second

// htmlConverter turns the EPUB at epubPath into a standalone HTML document at
// htmlPath. Implementations must leave no file at htmlPath on failure.
type htmlConverter interface {
	ToHTML(ctx context.Context, epubPath, htmlPath string) error
}

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. The child runs in its
// own process group, which is killed when ctx is done.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- converter path is operator configuration
	cmd.Dir = dir
	process.SetProcessGroup(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = killWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("%w: %v", ctxErr, err)
	}
	return stdout.String(), stderr.String(), err
}

// pandocConverter converts EPUB to HTML by invoking the pandoc CLI.
type pandocConverter struct {
	Runner CommandRunner
	Path   string
}

// newPandocConverter creates a pandocConverter with a real command runner.
func newPandocConverter(path string) *pandocConverter {
	if path == "" {
		path = DefaultPandocPath
	}
	return &pandocConverter{Runner: &ExecRunner{}, Path: path}
}

// ToHTML runs pandoc in the directory of htmlPath so extracted media lands
// inside the job workspace.
func (c *pandocConverter) ToHTML(ctx context.Context, epubPath, htmlPath string) error {
	dir := filepath.Dir(htmlPath)
	_, stderr, err := c.Runner.Run(ctx, dir, c.Path,
		epubPath,
		"--from", "epub",
		"--to", "html5",
		"--standalone",
		"--extract-media="+mediaDirName,
		"--output", htmlPath,
	)
	if err != nil {
		_ = os.Remove(htmlPath)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", ErrConverterNotFound, c.Path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrConversion, ctxErr)
		}
		return fmt.Errorf("%w: %s: %v", ErrConversion, trimStderr(stderr), err)
	}

	info, err := os.Stat(htmlPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(htmlPath)
		return fmt.Errorf("%w: pandoc produced no output", ErrConversion)
	}
	return nil
}

// PandocVersion returns the first line of `pandoc --version`.
func PandocVersion(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = DefaultPandocPath
	}
	stdout, stderr, err := (&ExecRunner{}).Run(ctx, "", path, "--version")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConverterNotFound, trimStderr(stderr), err)
	}
	line, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSpace(line), nil
}

// pandocAvailable reports whether the pandoc executable can be found.
func pandocAvailable(path string) bool {
	if path == "" {
		path = DefaultPandocPath
	}
	_, err := exec.LookPath(path)
	return err == nil
}

// trimStderr keeps converter diagnostics readable inside an error message.
func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		s = s[:maxStderrBytes] + "..."
	}
	if s == "" {
		return "no diagnostics"
	}
	return s
}
