package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/app"
	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/manager"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

// scriptAdapter hands out engines that stream a fixed reply word by word.
type scriptAdapter struct {
	mu      sync.Mutex
	reply   []string
	hold    bool
	loads   int
	prompts []string
}

func (a *scriptAdapter) Load(ctx context.Context, modelID string) (manager.Engine, error) {
	a.mu.Lock()
	a.loads++
	a.mu.Unlock()
	return &scriptEngine{a: a}, nil
}

func (a *scriptAdapter) loadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loads
}

func (a *scriptAdapter) lastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		return ""
	}
	return a.prompts[len(a.prompts)-1]
}

type scriptEngine struct{ a *scriptAdapter }

func (e *scriptEngine) Generate(ctx context.Context, prompt string, p manager.Params, onToken func(string) error) error {
	e.a.mu.Lock()
	e.a.prompts = append(e.a.prompts, prompt)
	reply, hold := e.a.reply, e.a.hold
	e.a.mu.Unlock()
	for _, w := range reply {
		if err := onToken(w); err != nil {
			return err
		}
	}
	if hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (e *scriptEngine) Close() error { return nil }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Engine.Device = "cpu"
	cfg.Engine.ShutdownGraceSeconds = 1
	cfg.Session.Secret = "e2e-secret"
	cfg.Generation.SystemPrompt = "Be brief."
	return cfg
}

// newStack serves a fully wired stack from an httptest server.
func newStack(t *testing.T, cfg config.Config, opts ...app.Option) (*app.Stack, *httptest.Server) {
	t.Helper()
	stack, err := app.Build(cfg, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	srv := httptest.NewServer(stack.Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stack.Close(ctx)
	})
	return stack, srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func postChat(t *testing.T, c *http.Client, base, msg string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(types.ChatRequest{Message: &msg})
	req, _ := http.NewRequestWithContext(t.Context(), http.MethodPost, base+"/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("post /chat: %v", err)
	}
	return resp
}

// chatFrames posts msg and returns every frame of the reply.
func chatFrames(t *testing.T, c *http.Client, base, msg string) []chat.Event {
	t.Helper()
	resp := postChat(t, c, base, msg)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	var evs []chat.Event
	for ev, err := range stream.ParseFrames(resp.Body) {
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		evs = append(evs, ev)
	}
	return evs
}

func getHealth(t *testing.T, base string) types.HealthResponse {
	t.Helper()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("get /health: %v", err)
	}
	defer resp.Body.Close()
	var hr types.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return hr
}
