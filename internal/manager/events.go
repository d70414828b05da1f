package manager

import "github.com/rs/zerolog"

// Lifecycle event names.
const (
	EventLoadStart  = "load_start"
	EventLoadReady  = "load_ready"
	EventLoadError  = "load_error"
	EventUnloadIdle = "unload_idle"
	EventUnload     = "unload"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher forwards events to a zerolog logger at debug level.
type LogPublisher struct{ Log *zerolog.Logger }

func (p LogPublisher) Publish(e Event) {
	if p.Log == nil {
		return
	}
	ev := p.Log.Debug().Str("event", e.Name).Str("model", e.ModelID)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("engine lifecycle")
}
