package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const loadKey = "load"

// EnsureReady returns the loaded engine, loading it first if necessary.
// Concurrent callers share one load. The load itself is not canceled when a
// single caller gives up; each caller only stops waiting on its own ctx.
func (m *Manager) EnsureReady(ctx context.Context) (Engine, error) {
	if ref := m.current.Load(); ref != nil {
		return ref.eng, nil
	}
	ch := m.loads.DoChan(loadKey, func() (any, error) {
		return m.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Engine), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Acquire ensures the engine is ready and pins it for one generation. The
// engine is not unloaded until release is called. release is idempotent.
func (m *Manager) Acquire(ctx context.Context) (Engine, func(), error) {
	for {
		eng, err := m.EnsureReady(ctx)
		if err != nil {
			return nil, nil, err
		}
		m.mu.Lock()
		if m.eng != eng {
			// Unloaded between EnsureReady and pinning; try again.
			m.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			continue
		}
		m.inflight++
		m.inflightN.Store(int64(m.inflight))
		m.mu.Unlock()
		engineInflight.Inc()
		m.RecordUse()

		release := sync.OnceFunc(func() {
			m.mu.Lock()
			m.inflight--
			m.inflightN.Store(int64(m.inflight))
			m.mu.Unlock()
			engineInflight.Dec()
			m.RecordUse()
		})
		return eng, release, nil
	}
}

func (m *Manager) load(ctx context.Context) (Engine, error) {
	m.transition.Lock()
	defer m.transition.Unlock()
	if ref := m.current.Load(); ref != nil {
		return ref.eng, nil
	}
	if m.adapter == nil {
		return nil, m.loadFailed(ErrEngineLoad(m.modelID, errors.New("no adapter configured")))
	}

	// Stale accelerator memory from a previous engine.
	m.releaseAdapterMemory()

	m.publisher.Publish(Event{Name: EventLoadStart, ModelID: m.modelID, Fields: map[string]any{"device": m.device}})
	m.log.Info().Str("model", m.modelID).Str("device", m.device).Msg("loading engine")
	start := m.now()

	eng, err := m.callAdapter(ctx)
	if err == nil && eng == nil {
		err = errors.New("adapter returned no engine")
	}
	if err != nil {
		// A failed load may leave partial allocations behind.
		m.releaseAdapterMemory()
		return nil, m.loadFailed(ErrEngineLoad(m.modelID, err))
	}

	m.mu.Lock()
	m.eng = eng
	m.mu.Unlock()
	m.current.Store(&engineRef{eng: eng})
	m.lastErr.Store(nil)
	m.loadsTotal.Add(1)
	m.RecordUse()
	engineLoaded.Set(1)
	engineLoadsTotal.WithLabelValues("success").Inc()

	took := m.now().Sub(start)
	m.publisher.Publish(Event{Name: EventLoadReady, ModelID: m.modelID, Fields: map[string]any{"duration_ms": took.Milliseconds()}})
	m.log.Info().Str("model", m.modelID).Dur("took", took).Msg("engine ready")
	return eng, nil
}

// callAdapter converts adapter panics into load errors.
func (m *Manager) callAdapter(ctx context.Context) (eng Engine, err error) {
	defer func() {
		if p := recover(); p != nil {
			eng, err = nil, fmt.Errorf("adapter panic: %v", p)
		}
	}()
	return m.adapter.Load(ctx, m.modelID)
}

func (m *Manager) releaseAdapterMemory() {
	if r, ok := m.adapter.(MemoryReleaser); ok {
		r.ReleaseMemory()
	}
}

func (m *Manager) loadFailed(err error) error {
	msg := err.Error()
	m.lastErr.Store(&msg)
	engineLoadsTotal.WithLabelValues("error").Inc()
	m.publisher.Publish(Event{Name: EventLoadError, ModelID: m.modelID, Fields: map[string]any{"error": msg}})
	m.log.Error().Err(err).Str("model", m.modelID).Msg("engine load failed")
	return err
}
