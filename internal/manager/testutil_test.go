package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	loadErr   error
	panicMsg  string
	gate      chan struct{} // when non-nil, Load blocks until closed
	tokens    []string
	genErr    error
	stats     *MemoryStats
	loads     atomic.Int32
	releases  atomic.Int32
	mu        sync.Mutex
	engines   []*fakeEngine
	receivedM string
}

func (f *fakeAdapter) Load(ctx context.Context, modelID string) (Engine, error) {
	f.loads.Add(1)
	f.mu.Lock()
	f.receivedM = modelID
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	e := &fakeEngine{tokens: f.tokens, genErr: f.genErr, stats: f.stats}
	f.mu.Lock()
	f.engines = append(f.engines, e)
	f.mu.Unlock()
	return e, nil
}

func (f *fakeAdapter) ReleaseMemory() { f.releases.Add(1) }

func (f *fakeAdapter) lastEngine() *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

type fakeEngine struct {
	tokens   []string
	genErr   error
	stats    *MemoryStats
	closed   atomic.Int32
	released atomic.Int32
}

func (e *fakeEngine) Generate(ctx context.Context, prompt string, p Params, onToken func(string) error) error {
	if e.genErr != nil {
		return e.genErr
	}
	for _, t := range e.tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onToken(t); err != nil {
			return err
		}
	}
	return nil
}

func (e *fakeEngine) Close() error { e.closed.Add(1); return nil }

func (e *fakeEngine) ReleaseMemory() { e.released.Add(1) }

func (e *fakeEngine) MemoryStats() (MemoryStats, bool) {
	if e.stats == nil {
		return MemoryStats{}, false
	}
	return *e.stats, true
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, a Adapter) (*Manager, *fakeClock, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m := New(Config{Adapter: a, ModelID: "gemma", Device: DeviceCPU, Publisher: pub, DrainTimeout: 200 * time.Millisecond})
	clk := newFakeClock()
	m.now = clk.Now
	return m, clk, pub
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
