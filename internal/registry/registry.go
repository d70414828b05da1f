// Package registry tracks in-flight chat requests so that process shutdown
// (or any other external party) can reach their cancellation signals.
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var requestsInflight = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "chatd",
	Subsystem: "requests",
	Name:      "inflight",
	Help:      "Chat requests currently registered for cancellation",
})

func init() {
	prometheus.MustRegister(requestsInflight)
}

// NewRequestID returns a fresh opaque request identifier.
func NewRequestID() string { return uuid.NewString() }

// Registry maps request ids to their cancellation signals. All methods are
// safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Signal
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Signal)}
}

// Register records sig under id. Ids are expected to be unique; registering
// an id twice replaces the earlier signal.
func (r *Registry) Register(id string, sig *Signal) {
	r.mu.Lock()
	r.entries[id] = sig
	n := len(r.entries)
	r.mu.Unlock()
	requestsInflight.Set(float64(n))
}

// Remove drops id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	n := len(r.entries)
	r.mu.Unlock()
	requestsInflight.Set(float64(n))
}

// CancelAll sets every registered signal and returns how many were signalled.
// Entries stay registered; each request removes itself once it has emitted
// its terminal event.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sig := range r.entries {
		sig.Cancel()
	}
	return len(r.entries)
}

// Len returns the number of registered requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns a snapshot of the registered request ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	return out
}
