package httpapi

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chatd/internal/chat"
	"chatd/internal/manager"
	"chatd/internal/registry"
	"chatd/internal/sessions"
)

type fakeEngine struct {
	health manager.Health
	panics bool
}

func (f *fakeEngine) HealthSnapshot() manager.Health {
	if f.panics {
		panic("device query failed")
	}
	return f.health
}

func (f *fakeEngine) Ready() bool { return f.health.Loaded }

// fakeGenerator replays events. When waitCancel is set it blocks after the
// events until the signal fires and then yields Aborted.
type fakeGenerator struct {
	events     []chat.Event
	waitCancel bool
	reg        *registry.Registry

	mu         sync.Mutex
	convs      []chat.Conversation
	regLen     int
	sawCancel  chan struct{}
}

func (g *fakeGenerator) Start(ctx context.Context, conv chat.Conversation, sig chat.CancelSignal) iter.Seq[chat.Event] {
	g.mu.Lock()
	g.convs = append(g.convs, conv)
	if g.reg != nil {
		g.regLen = g.reg.Len()
	}
	g.mu.Unlock()
	return func(yield func(chat.Event) bool) {
		for _, ev := range g.events {
			if !yield(ev) {
				return
			}
		}
		if g.waitCancel {
			<-sig.Done()
			if g.sawCancel != nil {
				close(g.sawCancel)
			}
			yield(chat.Aborted())
		}
	}
}

func (g *fakeGenerator) lastConv() chat.Conversation {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.convs[len(g.convs)-1]
}

type failingStore struct{ sessions.Store }

func (failingStore) Load(context.Context, string) (chat.Conversation, error) {
	return nil, errors.New("disk on fire")
}

type testEnv struct {
	handler  http.Handler
	store    *sessions.MemoryStore
	cookies  *sessions.CookieCodec
	registry *registry.Registry
	gen      *fakeGenerator
	engine   *fakeEngine
}

func newTestEnv(t *testing.T, gen *fakeGenerator) *testEnv {
	t.Helper()
	store := sessions.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })
	cookies, err := sessions.NewCookieCodec("test-secret", sessions.CookieOptions{})
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()
	gen.reg = reg
	eng := &fakeEngine{health: manager.Health{Loaded: true, Device: "cpu", ModelName: "gemma"}}
	env := &testEnv{store: store, cookies: cookies, registry: reg, gen: gen, engine: eng}
	env.handler = NewMux(Deps{
		Engine:     eng,
		Generator:  gen,
		Sessions:   store,
		Cookies:    cookies,
		Registry:   reg,
		MaxHistory: chat.DefaultMaxHistory,
	})
	return env
}

func chatRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// sessionOf extracts the session id from the cookie set on rec.
func (e *testEnv) sessionOf(t *testing.T, rec *httptest.ResponseRecorder) (string, *http.Cookie) {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == e.cookies.Name() {
			id, err := e.cookies.Decode(c.Value)
			if err != nil {
				t.Fatalf("decode cookie: %v", err)
			}
			return id, c
		}
	}
	t.Fatalf("no session cookie set")
	return "", nil
}
