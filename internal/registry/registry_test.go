package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegisterCancelAll(t *testing.T) {
	r := New()
	a, b := NewSignal(), NewSignal()
	r.Register("a", a)
	r.Register("b", b)
	if n := r.CancelAll(); n != 2 {
		t.Fatalf("CancelAll signalled %d, want 2", n)
	}
	if !a.IsSet() || !b.IsSet() {
		t.Fatalf("signals not set: a=%v b=%v", a.IsSet(), b.IsSet())
	}
	if r.Len() != 2 {
		t.Fatalf("CancelAll must not remove entries, len=%d", r.Len())
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := New()
	r.Register("x", NewSignal())
	r.Remove("x")
	r.Remove("x")
	r.Remove("never-registered")
	if r.Len() != 0 {
		t.Fatalf("len=%d", r.Len())
	}
}

func TestRemovedSignalNotCancelled(t *testing.T) {
	r := New()
	s := NewSignal()
	r.Register("x", s)
	r.Remove("x")
	r.CancelAll()
	if s.IsSet() {
		t.Fatalf("removed signal was cancelled")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("req-%d", i)
			r.Register(id, NewSignal())
			if i%3 == 0 {
				r.CancelAll()
			}
			r.Remove(id)
			r.Remove(id)
		}(i)
	}
	wg.Wait()
	if r.Len() != 0 {
		t.Fatalf("len=%d", r.Len())
	}
}

func TestSignal(t *testing.T) {
	s := NewSignal()
	if s.IsSet() {
		t.Fatalf("new signal is set")
	}
	select {
	case <-s.Done():
		t.Fatalf("done closed early")
	default:
	}
	s.Cancel()
	s.Cancel()
	if !s.IsSet() {
		t.Fatalf("signal not set after Cancel")
	}
	<-s.Done()
}

func TestNewRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if id == "" || seen[id] {
			t.Fatalf("bad id %q", id)
		}
		seen[id] = true
	}
}
