package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/chat"
	"chatd/internal/manager"
	"chatd/internal/registry"
	"chatd/internal/sessions"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

// Engine reports the inference engine state.
type Engine interface {
	HealthSnapshot() manager.Health
	Ready() bool
}

// Generator produces the event stream for one conversation.
type Generator interface {
	Start(ctx context.Context, conv chat.Conversation, sig chat.CancelSignal) iter.Seq[chat.Event]
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Engine     Engine
	Generator  Generator
	Sessions   sessions.Store
	Cookies    *sessions.CookieCodec
	Registry   *registry.Registry
	MaxHistory int
}

func NewMux(d Deps) http.Handler {
	if d.MaxHistory <= 0 {
		d.MaxHistory = chat.DefaultMaxHistory
	}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON and plain-text endpoints only. Event streams must
	// reach the client frame by frame.
	r.Use(middleware.Compress(5, "application/json", "text/plain"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Log-Level"},
			AllowCredentials: true,
			MaxAge:           int(corsMaxAge.Seconds()),
		}))
	}

	h := &chatHandler{deps: d, transcoder: stream.New(&zlog)}
	r.Post("/chat", h.ServeHTTP)

	r.Get("/health", healthHandler(d.Engine))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Engine != nil && d.Engine.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// healthHandler serves GET /health.
//
// @Summary      Engine health
// @Description  Reports whether the engine is loaded, the device it runs on and accelerator memory.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      500  {object}  types.HealthResponse
// @Router       /health [get]
func healthHandler(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := snapshot(eng)
		if err != nil {
			zlog.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusInternalServerError, types.HealthResponse{Status: "error", Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func snapshot(eng Engine) (resp types.HealthResponse, err error) {
	if eng == nil {
		return resp, errors.New("engine manager not configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("health snapshot: %v", p)
		}
	}()
	return healthResponse(eng.HealthSnapshot()), nil
}

func healthResponse(h manager.Health) types.HealthResponse {
	data := &types.HealthData{
		IsLoaded:     h.Loaded,
		Device:       h.Device,
		ModelName:    h.ModelName,
		GPUAvailable: h.GPUAvailable,
	}
	if h.GPUMemory != nil {
		data.GPUMemory = &types.GPUMemory{AllocatedMB: h.GPUMemory.AllocatedMB, ReservedMB: h.GPUMemory.ReservedMB}
	}
	return types.HealthResponse{Status: "success", Data: data}
}

type chatHandler struct {
	deps       Deps
	transcoder *stream.Transcoder
}

// ServeHTTP handles POST /chat.
//
// @Summary      Stream a chat reply
// @Description  Appends the message to the session's conversation and streams the reply as server-sent events.
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Param        body  body      types.ChatRequest  true  "User message"
// @Success      200   {object}  types.StreamFrame  "one frame per data: line"
// @Failure      400   {object}  types.ErrorResponse
// @Failure      415   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /chat [post]
func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lvl := requestLogLevel(r)
	log := zlog.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		countRejection("content_type")
		writeJSONError(w, http.StatusUnsupportedMediaType, msgUnsupportedType)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Oversized bodies are reported the same way as malformed ones.
		countRejection("invalid_json")
		writeJSONError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	// An empty message is a valid (empty) user turn; only a missing one is rejected.
	if req.Message == nil {
		countRejection("missing_message")
		writeJSONError(w, http.StatusBadRequest, msgMissingMessage)
		return
	}

	sessionID, conv, err := h.prepare(w, r, *req.Message)
	if err != nil {
		if lvl >= LevelError {
			log.Error().Err(err).Msg("chat setup failed")
		}
		countRejection("setup")
		writeJSONError(w, http.StatusInternalServerError, msgStreamSetup)
		return
	}

	reqID := registry.NewRequestID()
	sig := registry.NewSignal()
	h.deps.Registry.Register(reqID, sig)
	defer h.deps.Registry.Remove(reqID)

	// Client disconnect and server shutdown both cancel the generation.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	stop := context.AfterFunc(ctx, sig.Cancel)
	defer stop()

	start := time.Now()
	if lvl >= LevelInfo {
		log.Info().Str("chat_request", reqID).Int("turns", len(conv)).Msg("chat start")
	}

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
		flush()
	}
	writer := io.Writer(w)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &frameLogWriter{log: log})
	}

	last := h.transcoder.Pipe(h.deps.Generator.Start(ctx, conv, sig), writer, flush, sig)

	if last.Kind == chat.KindSuccess {
		conv = conv.Append(chat.RoleModel, last.FullResponse).Trim(h.deps.MaxHistory)
		if err := h.deps.Sessions.Save(context.WithoutCancel(r.Context()), sessionID, conv); err != nil && lvl >= LevelError {
			log.Error().Err(err).Msg("saving reply to session")
		}
	}
	if lvl >= LevelInfo {
		log.Info().Str("chat_request", reqID).Str("outcome", string(last.Kind)).Dur("dur", time.Since(start)).Msg("chat end")
	}
}

// prepare resolves the session and persists the conversation with the new
// user turn before the stream opens.
func (h *chatHandler) prepare(w http.ResponseWriter, r *http.Request, message string) (string, chat.Conversation, error) {
	if h.deps.Cookies == nil || h.deps.Sessions == nil || h.deps.Generator == nil || h.deps.Registry == nil {
		return "", nil, errors.New("chat handler not configured")
	}
	id, err := h.deps.Cookies.SessionID(w, r)
	if err != nil {
		return "", nil, err
	}
	conv, err := h.deps.Sessions.Load(r.Context(), id)
	if err != nil {
		return "", nil, err
	}
	conv = conv.Append(chat.RoleUser, message).Trim(h.deps.MaxHistory)
	if err := h.deps.Sessions.Save(r.Context(), id, conv); err != nil {
		return "", nil, err
	}
	return id, conv, nil
}
