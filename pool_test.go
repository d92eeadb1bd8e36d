package epub2pdf

// Notes:
// - The pool's newConverter hook builds converters with a mock engine so no
//   browser is launched.

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newTestPool returns a pool whose converters use mock stages, and a
// counter of converters created.
func newTestPool(t *testing.T, n int) (*ConverterPool, *atomic.Int32) {
	t.Helper()
	var created atomic.Int32
	p := NewConverterPool(n, WithBackend(BackendText))
	p.newConverter = func(opts ...Option) (*Converter, error) {
		created.Add(1)
		opts = append(opts, withEngine(&mockEngine{}), withHTMLConverterImpl(&mockHTMLConverter{}))
		return NewConverter(opts...)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, &created
}

// ---------------------------------------------------------------------------
// TestConverterPool
// ---------------------------------------------------------------------------

func TestNewConverterPool_MinimumSize(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-3, 0} {
		p := NewConverterPool(n)
		if p.Size() != 1 {
			t.Errorf("NewConverterPool(%d).Size() = %d, want 1", n, p.Size())
		}
		_ = p.Close()
	}
}

func TestConverterPool_LazyCreationAndReuse(t *testing.T) {
	t.Parallel()

	p, created := newTestPool(t, 2)
	ctx := context.Background()

	if created.Load() != 0 {
		t.Fatal("no converter should exist before Acquire")
	}

	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if c1.Backend() != BackendText {
		t.Errorf("pool options not applied: backend = %s", c1.Backend())
	}
	p.Release(c1)

	c2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if c2 != c1 {
		t.Error("released converter should be reused")
	}
	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}
	p.Release(c2)
}

func TestConverterPool_BlocksAtCapacity(t *testing.T) {
	t.Parallel()

	p, _ := newTestPool(t, 1)
	c, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() at capacity error = %v, want DeadlineExceeded", err)
	}

	got := make(chan *Converter, 1)
	go func() {
		c2, err := p.Acquire(context.Background())
		if err == nil {
			got <- c2
		}
	}()
	p.Release(c)

	select {
	case c2 := <-got:
		if c2 != c {
			t.Error("waiter should receive the released converter")
		}
		p.Release(c2)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never received a converter")
	}
}

func TestConverterPool_CreationFailureFreesSlot(t *testing.T) {
	t.Parallel()

	p := NewConverterPool(1)
	t.Cleanup(func() { _ = p.Close() })
	fail := true
	p.newConverter = func(opts ...Option) (*Converter, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return NewConverter(withEngine(&mockEngine{}), withHTMLConverterImpl(&mockHTMLConverter{}))
	}

	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatal("Acquire() should surface the creation error")
	}
	fail = false
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after failure error = %v", err)
	}
}

func TestConverterPool_Close(t *testing.T) {
	t.Parallel()

	p, _ := newTestPool(t, 2)
	c, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !c.isClosed() {
		t.Error("Close() should close created converters")
	}

	// Release after Close must not panic on the closed channel.
	p.Release(c)

	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrClosed", err)
	}
}

func TestConverterPool_CloseWithIdleConverter(t *testing.T) {
	t.Parallel()

	p, _ := newTestPool(t, 1)
	c, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.Release(c)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := p.Acquire(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrClosed", err)
	}
	if got != nil {
		t.Error("Acquire() after Close returned a converter")
	}
}

func TestConverterPool_ConcurrentJobs(t *testing.T) {
	t.Parallel()

	p, created := newTestPool(t, 3)
	var wg sync.WaitGroup
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := p.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer p.Release(c)
			time.Sleep(time.Millisecond)
		}()
	}
	wg.Wait()

	if n := created.Load(); n < 1 || n > 3 {
		t.Errorf("created = %d, want between 1 and 3", n)
	}
}

// ---------------------------------------------------------------------------
// TestResolvePoolSize
// ---------------------------------------------------------------------------

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	if got := ResolvePoolSize(5); got != 5 {
		t.Errorf("ResolvePoolSize(5) = %d, want 5", got)
	}

	got := ResolvePoolSize(0)
	if got < MinPoolSize || got > MaxPoolSize {
		t.Errorf("ResolvePoolSize(0) = %d, out of [%d, %d]", got, MinPoolSize, MaxPoolSize)
	}
	want := min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinPoolSize), MaxPoolSize)
	if got != want {
		t.Errorf("ResolvePoolSize(0) = %d, want %d", got, want)
	}
}
