package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultDevice       = "cpu"
	defaultDrainTimeout = 5 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Adapter creates engines; required.
	Adapter Adapter
	// ModelID is passed to Adapter.Load and reported in health snapshots.
	ModelID string
	// Device and GPUAvailable are reported as-is; see DetectDevice.
	Device       string
	GPUAvailable bool
	// DrainTimeout bounds how long Unload waits for pinned generations.
	DrainTimeout time.Duration
	Publisher    EventPublisher
	Logger       *zerolog.Logger
}
