package epub2pdf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// File names inside a job workspace.
const (
	inputFileName    = "input.epub"
	htmlFileName     = "book.html"
	renderFileName   = "render.html"
	pdfFileName      = "book.pdf"
	mediaDirName     = "media"
	jobDirPrefix     = "epub2pdf-"
	workspaceDirPerm = 0o700
	inputFilePerm    = 0o600
)

// job is one conversion run. It owns a fresh working directory and every
// path allocated under it until teardown.
type job struct {
	id        string
	dir       string
	backend   Backend
	inputPath string
	htmlPath  string // set once structural conversion succeeded
	pdfPath   string // set once rendering succeeded

	mu        sync.Mutex
	allocated []string
	once      sync.Once
	tornDown  error
}

// newJob creates the working directory under root (os.TempDir when empty).
func newJob(root string, backend Backend) (*job, error) {
	id := uuid.NewString()
	if root == "" {
		root = os.TempDir()
	}
	dir, err := os.MkdirTemp(root, jobDirPrefix+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating workspace: %v", ErrIO, err)
	}
	if err := os.Chmod(dir, workspaceDirPerm); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: securing workspace: %v", ErrIO, err)
	}
	return &job{id: id, dir: dir, backend: backend}, nil
}

// path allocates name inside the workspace and records it for teardown.
func (j *job) path(name string) string {
	p := filepath.Join(j.dir, name)
	j.mu.Lock()
	j.allocated = append(j.allocated, p)
	j.mu.Unlock()
	return p
}

// writeInput persists the uploaded bytes verbatim. No structural validation.
func (j *job) writeInput(data []byte) error {
	p := j.path(inputFileName)
	if err := os.WriteFile(p, data, inputFilePerm); err != nil {
		return fmt.Errorf("%w: writing input: %v", ErrIO, err)
	}
	j.inputPath = p
	return nil
}

// teardown removes every allocated path and then the workspace itself.
// A missing path is not an error. Removal continues past failures and all
// failures are joined. Safe to call more than once.
func (j *job) teardown() error {
	j.once.Do(func() {
		j.mu.Lock()
		paths := append([]string(nil), j.allocated...)
		j.mu.Unlock()

		var errs []error
		for i := len(paths) - 1; i >= 0; i-- {
			if err := removePath(paths[i]); err != nil {
				errs = append(errs, err)
			}
		}
		if err := removePath(j.dir); err != nil {
			errs = append(errs, err)
		}
		j.tornDown = errors.Join(errs...)
	})
	return j.tornDown
}

// removePath deletes a file or directory tree, ignoring paths already gone.
func removePath(p string) error {
	info, err := os.Lstat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(p)
	} else {
		err = os.Remove(p)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing %s: %v", ErrIO, p, err)
	}
	return nil
}
