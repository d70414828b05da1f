// Package app assembles the service from a resolved configuration. Both
// binaries and the end-to-end tests build their stack here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
	"chatd/internal/registry"
	"chatd/internal/sessions"
)

// Stack is the running service without its HTTP listener.
type Stack struct {
	Config   config.Config
	Log      zerolog.Logger
	Manager  *manager.Manager
	Session  *chat.Session
	Store    sessions.Store
	Cookies  *sessions.CookieCodec
	Registry *registry.Registry
}

type options struct {
	adapter manager.Adapter
	store   sessions.Store
}

// Option customizes Build.
type Option func(*options)

// WithAdapter replaces the adapter selected by engine.backend.
func WithAdapter(a manager.Adapter) Option { return func(o *options) { o.adapter = a } }

// WithStore replaces the store selected by session.backend.
func WithStore(s sessions.Store) Option { return func(o *options) { o.store = s } }

// NewLogger returns a JSON logger writing to w at the given level. Unknown
// levels fall back to info.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewAdapter returns the engine adapter for ec.Backend.
func NewAdapter(ec config.EngineConfig) (manager.Adapter, error) {
	switch ec.Backend {
	case config.BackendOllama:
		return manager.NewOllamaAdapter(manager.WithOllamaURL(ec.OllamaURL)), nil
	case config.BackendLlama:
		return manager.NewLlamaAdapter(ec.ModelPath, ec.ContextSize, ec.Threads, ec.GPULayers), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", ec.Backend)
	}
}

// GenerationParams maps the generation section to engine parameters. With no
// stop words configured generation stops at the end-of-turn marker.
func GenerationParams(gc config.GenerationConfig) manager.Params {
	stop := gc.Stop
	if len(stop) == 0 {
		stop = []string{chat.StopSequence}
	}
	return manager.Params{
		Temperature:   gc.Temperature,
		TopP:          gc.TopP,
		TopK:          gc.TopK,
		MaxTokens:     gc.MaxTokens,
		RepeatPenalty: gc.RepeatPenalty,
		Stop:          stop,
	}
}

// OpenStore opens the conversation store selected by sc.Backend.
func OpenStore(sc config.SessionConfig) (sessions.Store, error) {
	ttl := time.Duration(sc.TTLSeconds) * time.Second
	switch sc.Backend {
	case config.SessionMemory:
		return sessions.NewMemoryStore(ttl), nil
	case config.SessionSQLite:
		return sessions.OpenSQLite(sc.Path, ttl)
	default:
		return nil, fmt.Errorf("unknown session backend %q", sc.Backend)
	}
}

// Build wires manager, generation session, conversation store, cookie codec
// and request registry. Nothing is loaded yet; the first generation loads the
// engine.
func Build(cfg config.Config, log zerolog.Logger, opts ...Option) (*Stack, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.adapter == nil {
		a, err := NewAdapter(cfg.Engine)
		if err != nil {
			return nil, err
		}
		o.adapter = a
	}

	device, gpu := manager.DetectDevice(cfg.Engine.Device)
	mlog := log.With().Str("component", "manager").Logger()
	mgr := manager.New(manager.Config{
		Adapter:      o.adapter,
		ModelID:      cfg.Engine.Model,
		Device:       device,
		GPUAvailable: gpu,
		DrainTimeout: time.Duration(cfg.Engine.ShutdownGraceSeconds) * time.Second,
		Publisher:    manager.LogPublisher{Log: &mlog},
		Logger:       &mlog,
	})

	if o.store == nil {
		st, err := OpenStore(cfg.Session)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		o.store = st
	}
	cookies, err := sessions.NewCookieCodec(cfg.Session.Secret, sessions.CookieOptions{
		Name:   cfg.Session.CookieName,
		TTL:    time.Duration(cfg.Session.TTLSeconds) * time.Second,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		o.store.Close()
		return nil, err
	}
	if cfg.Session.Secret == config.DevSecret {
		log.Warn().Msg("session secret is the development default; set CHATD_SESSION_SECRET")
	}

	sess := chat.NewSession(mgr, chat.Config{
		SystemPrompt:  cfg.Generation.SystemPrompt,
		Params:        GenerationParams(cfg.Generation),
		HandoffBuffer: cfg.Engine.HandoffBuffer,
		Logger:        &log,
	})
	log.Info().Str("backend", cfg.Engine.Backend).Str("model", cfg.Engine.Model).
		Str("device", device).Bool("gpu", gpu).Msg("engine configured")

	return &Stack{
		Config:   cfg,
		Log:      log,
		Manager:  mgr,
		Session:  sess,
		Store:    o.store,
		Cookies:  cookies,
		Registry: registry.New(),
	}, nil
}

// Handler configures the HTTP layer and returns the router.
func (s *Stack) Handler() http.Handler {
	httpapi.SetLogger(s.Log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(s.Config.LogLevel)
	if s.Config.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(s.Config.MaxBodyBytes)
	}
	httpapi.SetCORSOptions(s.Config.CORS.Enabled, s.Config.CORS.Origins)
	return httpapi.NewMux(httpapi.Deps{
		Engine:     s.Manager,
		Generator:  s.Session,
		Sessions:   s.Store,
		Cookies:    s.Cookies,
		Registry:   s.Registry,
		MaxHistory: s.Config.Generation.MaxHistory,
	})
}

// Reaper returns the idle unloader for the configured thresholds.
func (s *Stack) Reaper() *manager.IdleReaper {
	return manager.NewIdleReaper(s.Manager,
		time.Duration(s.Config.Engine.IdleTimeoutSeconds)*time.Second,
		time.Duration(s.Config.Engine.IdleCheckSeconds)*time.Second)
}

// Close unloads the engine, waiting at most until ctx is done for pinned
// generations, then closes the store. Callers cancel in-flight requests
// through Registry.CancelAll first.
func (s *Stack) Close(ctx context.Context) error {
	return errors.Join(s.Manager.Unload(ctx), s.Store.Close())
}
