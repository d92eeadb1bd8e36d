package main

import (
	"context"

	epub2pdf "github.com/alnah/go-epub2pdf"
)

// CLIConverter is the part of *epub2pdf.Converter the front ends use.
type CLIConverter interface {
	Convert(ctx context.Context, input epub2pdf.Input) (*epub2pdf.Result, error)
}

// Compile-time interface implementation check.
var _ CLIConverter = (*epub2pdf.Converter)(nil)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire(ctx context.Context) (CLIConverter, error)
	Release(CLIConverter)
	Size() int
	Close() error
}

// converterPool adapts *epub2pdf.ConverterPool to Pool.
type converterPool struct {
	pool *epub2pdf.ConverterPool
}

// newConverterPool creates a pool of n lazily started converters.
func newConverterPool(n int, opts ...epub2pdf.Option) Pool {
	return &converterPool{pool: epub2pdf.NewConverterPool(n, opts...)}
}

func (p *converterPool) Acquire(ctx context.Context) (CLIConverter, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Release ignores converters that did not come from this pool.
func (p *converterPool) Release(c CLIConverter) {
	if conv, ok := c.(*epub2pdf.Converter); ok {
		p.pool.Release(conv)
	}
}

func (p *converterPool) Size() int {
	return p.pool.Size()
}

func (p *converterPool) Close() error {
	return p.pool.Close()
}
