package main

// Notes:
// - This file contains mocks and builders shared by the CLI tests.
// No coverage gaps: this is test infrastructure, not production code.

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/assets"
)

// fakePDF is returned by mockConverter.
var fakePDF = []byte("%PDF-1.7 mock\n%%EOF")

// ---------------------------------------------------------------------------
// Mock Implementations - Converter and pool
// ---------------------------------------------------------------------------

// mockConverter returns fakePDF, or err when set.
type mockConverter struct {
	err      error
	warnings *epub2pdf.PartialRenderError
	delay    time.Duration

	mu     sync.Mutex
	inputs []epub2pdf.Input
}

func (m *mockConverter) Convert(ctx context.Context, input epub2pdf.Input) (*epub2pdf.Result, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	base := strings.TrimSuffix(input.Filename, filepath.Ext(input.Filename))
	return &epub2pdf.Result{
		Filename:  base + ".pdf",
		MediaType: epub2pdf.MediaTypePDF,
		PDF:       fakePDF,
		Pages:     3,
		Backend:   input.Backend,
		Warnings:  m.warnings,
	}, nil
}

func (m *mockConverter) received() []epub2pdf.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]epub2pdf.Input(nil), m.inputs...)
}

// mockPool hands out the same converter to every caller.
type mockPool struct {
	conv       CLIConverter
	size       int
	acquireErr error
	closeErr   error

	acquired atomic.Int32
	released atomic.Int32
	closed   atomic.Bool
}

func (p *mockPool) Acquire(ctx context.Context) (CLIConverter, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.acquired.Add(1)
	return p.conv, nil
}

func (p *mockPool) Release(CLIConverter) {
	p.released.Add(1)
}

func (p *mockPool) Size() int {
	if p.size == 0 {
		return 1
	}
	return p.size
}

func (p *mockPool) Close() error {
	p.closed.Store(true)
	return p.closeErr
}

// busyPool blocks Acquire until the context ends.
type busyPool struct{ mockPool }

func (p *busyPool) Acquire(ctx context.Context) (CLIConverter, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// ---------------------------------------------------------------------------
// Environment Builders
// ---------------------------------------------------------------------------

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	pool   *mockPool

	mu       sync.Mutex
	poolSize int
	poolOpts int
}

// newTestEnv returns an Environment reading vars and creating pool.
func newTestEnv(vars map[string]string, pool *mockPool) *testEnv {
	if pool == nil {
		pool = &mockPool{conv: &mockConverter{}}
	}
	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		pool:   pool,
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(k string) string { return vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		AssetLoader: assets.NewEmbeddedLoader(),
		NewPool: func(n int, opts ...epub2pdf.Option) Pool {
			te.mu.Lock()
			te.poolSize = n
			te.poolOpts = len(opts)
			te.mu.Unlock()
			if pool.size == 0 {
				pool.size = n
			}
			return pool
		},
	}
	return te
}

// writeEPUB creates a placeholder .epub file. Conversion is mocked, so the
// content only has to be non-empty.
func writeEPUB(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("PK\x03\x04 placeholder"), 0o600); err != nil {
		t.Fatalf("write epub: %v", err)
	}
	return path
}

// writeFile creates path with content.
func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// errTest is a generic failure used by mocks.
var errTest = errors.New("test failure")
