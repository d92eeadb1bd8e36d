package main

import (
	"io"
	"os"
	"time"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/assets"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment, asset loading and the pool factory.
type Environment struct {
	Now         func() time.Time
	Stdout      io.Writer
	Stderr      io.Writer
	Getenv      func(string) string
	Environ     func() []string
	AssetLoader assets.AssetLoader
	NewPool     func(n int, opts ...epub2pdf.Option) Pool
}

// DefaultEnv returns production environment with embedded assets.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Environ:     os.Environ,
		AssetLoader: assets.NewEmbeddedLoader(),
		NewPool:     newConverterPool,
	}
}
