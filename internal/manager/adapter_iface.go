package manager

import "context"

// Adapter loads engines for a specific runtime (llama.cpp, Ollama, ...).
type Adapter interface {
	// Load initializes the model identified by modelID and returns a ready
	// engine. It may block for a long time.
	Load(ctx context.Context, modelID string) (Engine, error)
}

// Engine is a loaded, ready-to-generate model instance. Engines are shared
// across concurrent requests; implementations serialize internally where the
// runtime requires it.
type Engine interface {
	// Generate streams fragments for prompt through onToken in production
	// order. It blocks until generation finishes, onToken returns an error,
	// or ctx is canceled.
	Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) error
	// Close releases the engine and any accelerator memory it holds.
	Close() error
}

// MemoryReporter is implemented by engines that can report accelerator
// memory usage. MemoryStats must not block.
type MemoryReporter interface {
	MemoryStats() (MemoryStats, bool)
}

// MemoryReleaser is implemented by engines and adapters that can drop
// transient allocator caches.
type MemoryReleaser interface {
	ReleaseMemory()
}

// Params captures generation parameters passed to the engine.
type Params struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// MemoryStats reports accelerator memory in MiB.
type MemoryStats struct {
	AllocatedMB float64
	ReservedMB  float64
}
