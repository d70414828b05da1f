package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chatd/internal/app"
	"chatd/internal/config"
	"chatd/internal/httpapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chatd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CHATD_CONFIG"), "Path to a .yaml, .json or .toml config file")
	addr := flag.String("addr", "", "HTTP listen address, e.g. :5000")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error")
	backend := flag.String("backend", "", "Engine backend: ollama|llama")
	model := flag.String("model", "", "Model identifier")
	modelPath := flag.String("model-path", "", "Path to a GGUF file (llama backend)")
	ollamaURL := flag.String("ollama-url", "", "Ollama server URL (ollama backend)")
	device := flag.String("device", "", "Device preference: auto|cuda|cpu")
	idleTimeout := flag.Int("idle-timeout", 0, "Seconds of inactivity before the engine is unloaded (0 keeps config)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated list of allowed CORS origins")
	flag.Parse()

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		return err
	}
	// Flags win over file and environment, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "backend":
			cfg.Engine.Backend = *backend
		case "model":
			cfg.Engine.Model = *model
		case "model-path":
			cfg.Engine.ModelPath = *modelPath
		case "ollama-url":
			cfg.Engine.OllamaURL = *ollamaURL
		case "device":
			cfg.Engine.Device = *device
		case "idle-timeout":
			cfg.Engine.IdleTimeoutSeconds = *idleTimeout
		case "cors-origins":
			cfg.CORS.Origins = splitCSV(*corsOrigins)
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := app.NewLogger(os.Stderr, cfg.LogLevel)
	stack, err := app.Build(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           stack.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grace := time.Duration(cfg.Engine.ShutdownGraceSeconds) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("model", cfg.Engine.Model).Msg("chatd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return stack.Reaper().Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		n := stack.Registry.CancelAll()
		log.Info().Int("cancelled", n).Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})
	runErr := g.Wait()

	cctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := stack.Close(cctx); err != nil {
		log.Warn().Err(err).Msg("engine unload")
	}
	log.Info().Msg("chatd stopped")
	return runErr
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
