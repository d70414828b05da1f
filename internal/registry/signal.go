package registry

import "sync"

// Signal is a shared, settable cancellation flag. The HTTP side sets it; a
// generation session observes it at fragment boundaries. The zero value is
// not usable, use NewSignal.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal returns an unset signal.
func NewSignal() *Signal { return &Signal{ch: make(chan struct{})} }

// Cancel sets the flag. Safe to call repeatedly and concurrently.
func (s *Signal) Cancel() { s.once.Do(func() { close(s.ch) }) }

// IsSet reports whether Cancel has been called.
func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the flag is set.
func (s *Signal) Done() <-chan struct{} { return s.ch }
