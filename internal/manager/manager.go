package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type Manager struct {
	adapter      Adapter
	modelID      string
	device       string
	gpu          bool
	drainTimeout time.Duration
	publisher    EventPublisher
	log          zerolog.Logger

	// transition serializes load and unload.
	transition sync.Mutex
	loads      singleflight.Group

	// mu guards eng and inflight. Never held across adapter calls.
	mu       sync.Mutex
	eng      Engine
	inflight int

	// Lock-free mirrors read by HealthSnapshot.
	current     atomic.Pointer[engineRef]
	lastUsed    atomic.Int64
	inflightN   atomic.Int64
	loadsTotal  atomic.Uint64
	unloadTotal atomic.Uint64
	lastErr     atomic.Pointer[string]

	now func() time.Time
}

type engineRef struct{ eng Engine }

// New constructs a Manager from Config. No engine is loaded until the first
// EnsureReady or Acquire.
func New(cfg Config) *Manager {
	m := &Manager{
		adapter:      cfg.Adapter,
		modelID:      cfg.ModelID,
		device:       cfg.Device,
		gpu:          cfg.GPUAvailable,
		drainTimeout: cfg.DrainTimeout,
		publisher:    cfg.Publisher,
		log:          zerolog.Nop(),
		now:          time.Now,
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	if m.device == "" {
		m.device = defaultDevice
	}
	if m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}

// SetEventPublisher installs an EventPublisher. nil restores the no-op default.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		m.publisher = noopPublisher{}
		return
	}
	m.publisher = p
}

// Ready reports whether an engine is currently loaded.
func (m *Manager) Ready() bool { return m.current.Load() != nil }

// ModelID returns the configured model identifier.
func (m *Manager) ModelID() string { return m.modelID }

// RecordUse marks the engine as used now. Called at the start of every
// generation.
func (m *Manager) RecordUse() { m.lastUsed.Store(m.now().UnixNano()) }

// ReleaseTransient drops engine-side caches after a generation. It is safe to
// call with a nil engine; a failed load has already released the adapter's
// memory.
func (m *Manager) ReleaseTransient(eng Engine) {
	if r, ok := eng.(MemoryReleaser); ok {
		r.ReleaseMemory()
	}
}
