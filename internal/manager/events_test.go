package manager

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetEventPublisher_NilRestoresNoop(t *testing.T) {
	m := New(Config{Adapter: &fakeAdapter{}})
	pub := NewMemoryPublisher()
	m.SetEventPublisher(pub)
	if _, err := m.EnsureReady(testCtx(t)); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if got := pub.Names(); len(got) != 2 || got[0] != EventLoadStart || got[1] != EventLoadReady {
		t.Fatalf("unexpected events: %v", got)
	}
	m.SetEventPublisher(nil)
	if _, ok := m.publisher.(noopPublisher); !ok {
		t.Fatalf("expected noop publisher")
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf).Level(zerolog.DebugLevel)
	LogPublisher{Log: &lg}.Publish(Event{Name: EventLoadReady, ModelID: "m", Fields: map[string]any{"duration_ms": 12}})
	out := buf.String()
	if !strings.Contains(out, `"event":"load_ready"`) || !strings.Contains(out, `"duration_ms":12`) {
		t.Fatalf("unexpected log line: %s", out)
	}
	// nil logger is a no-op
	LogPublisher{}.Publish(Event{Name: "x"})
}
