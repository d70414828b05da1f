package manager

import "time"

// Health is an advisory view of the engine state. It may race with a
// concurrent load or unload.
type Health struct {
	Loaded       bool
	Device       string
	ModelName    string
	GPUAvailable bool
	GPUMemory    *MemoryStats
	LastUsed     time.Time
	LoadsTotal   uint64
	UnloadsTotal uint64
	Inflight     int64
	LastError    string
}

// HealthSnapshot returns the current engine state without taking any lock.
func (m *Manager) HealthSnapshot() Health {
	h := Health{
		Device:       m.device,
		ModelName:    m.modelID,
		GPUAvailable: m.gpu,
		LoadsTotal:   m.loadsTotal.Load(),
		UnloadsTotal: m.unloadTotal.Load(),
		Inflight:     m.inflightN.Load(),
	}
	if ts := m.lastUsed.Load(); ts != 0 {
		h.LastUsed = time.Unix(0, ts)
	}
	if e := m.lastErr.Load(); e != nil {
		h.LastError = *e
	}
	ref := m.current.Load()
	if ref == nil {
		return h
	}
	h.Loaded = true
	if r, ok := ref.eng.(MemoryReporter); ok {
		if st, ok := r.MemoryStats(); ok {
			h.GPUMemory = &st
		}
	}
	return h
}
