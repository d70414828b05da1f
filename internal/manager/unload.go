package manager

import (
	"context"
	"time"
)

// UnloadIfIdle releases the engine when it has been idle for longer than
// maxIdle and no generation has it pinned. It reports whether an unload
// happened. It never waits behind an in-progress load or unload.
func (m *Manager) UnloadIfIdle(maxIdle time.Duration) bool {
	if m.current.Load() == nil {
		return false
	}
	if !m.transition.TryLock() {
		return false
	}
	defer m.transition.Unlock()

	idle := m.now().Sub(time.Unix(0, m.lastUsed.Load()))
	if idle <= maxIdle {
		return false
	}
	eng := m.detach()
	if eng == nil {
		return false
	}
	m.closeEngine(eng, "idle")
	m.publisher.Publish(Event{Name: EventUnloadIdle, ModelID: m.modelID, Fields: map[string]any{"idle_seconds": int64(idle.Seconds())}})
	m.log.Info().Str("model", m.modelID).Dur("idle", idle).Msg("engine unloaded after idle timeout")
	return true
}

// Unload releases the engine unconditionally, first waiting up to the drain
// timeout (or until ctx is done) for pinned generations to finish. It is a
// no-op when nothing is loaded.
func (m *Manager) Unload(ctx context.Context) error {
	m.transition.Lock()
	defer m.transition.Unlock()
	if m.current.Load() == nil {
		return nil
	}

	deadline := m.now().Add(m.drainTimeout)
	for m.inflightN.Load() > 0 {
		if m.now().After(deadline) {
			m.log.Warn().Int64("inflight", m.inflightN.Load()).Msg("unload drain timed out")
			break
		}
		select {
		case <-ctx.Done():
			m.log.Warn().Int64("inflight", m.inflightN.Load()).Msg("unload drain interrupted")
			deadline = time.Time{}
		case <-time.After(10 * time.Millisecond):
		}
	}

	m.mu.Lock()
	eng := m.eng
	m.eng = nil
	m.current.Store(nil)
	m.mu.Unlock()
	if eng == nil {
		return nil
	}
	err := m.closeEngine(eng, "shutdown")
	m.publisher.Publish(Event{Name: EventUnload, ModelID: m.modelID, Fields: map[string]any{}})
	m.log.Info().Str("model", m.modelID).Msg("engine unloaded")
	return err
}

// detach clears the loaded engine if nothing has it pinned. Caller holds
// transition.
func (m *Manager) detach() Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight > 0 || m.eng == nil {
		return nil
	}
	eng := m.eng
	m.eng = nil
	m.current.Store(nil)
	return eng
}

func (m *Manager) closeEngine(eng Engine, reason string) error {
	m.ReleaseTransient(eng)
	err := eng.Close()
	if err != nil {
		m.log.Warn().Err(err).Str("model", m.modelID).Msg("engine close")
	}
	engineLoaded.Set(0)
	engineUnloadsTotal.WithLabelValues(reason).Inc()
	m.unloadTotal.Add(1)
	return err
}
