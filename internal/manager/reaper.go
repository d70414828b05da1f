package manager

import (
	"context"
	"time"
)

// IdleReaper periodically asks the manager to unload an idle engine.
type IdleReaper struct {
	m        *Manager
	maxIdle  time.Duration
	interval time.Duration
}

// NewIdleReaper returns a reaper that checks every interval and unloads once
// the engine has been idle longer than maxIdle. A non-positive interval
// defaults to maxIdle/10, bounded below by one second.
func NewIdleReaper(m *Manager, maxIdle, interval time.Duration) *IdleReaper {
	if interval <= 0 {
		interval = maxIdle / 10
	}
	if interval < time.Second {
		interval = time.Second
	}
	return &IdleReaper{m: m, maxIdle: maxIdle, interval: interval}
}

// Run blocks until ctx is done. It always returns nil so it can be used
// directly with errgroup.
func (r *IdleReaper) Run(ctx context.Context) error {
	if r.maxIdle <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.m.UnloadIfIdle(r.maxIdle)
		}
	}
}
