package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. CHATD_ENGINE_MODEL.
const EnvPrefix = "CHATD_"

// Load reads a configuration file based on its extension on top of Default().
// Keys missing from the file keep their default value.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables (and a .env file in the working
// directory, if present) on cfg. Only variables that are set are applied.
// PORT is honored for compatibility with PaaS style deployments when no
// explicit CHATD_ADDR is given.
func ApplyEnv(cfg *Config) error {
	// .env is optional
	_ = godotenv.Load()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	if _, ok := os.LookupEnv(EnvPrefix + "ADDR"); !ok {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			cfg.Addr = ":" + port
		}
	}
	return nil
}

// Resolve builds the effective configuration: defaults, then the optional
// file at path, then environment overrides. The result is validated.
func Resolve(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate reports configuration values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Engine.Backend {
	case BackendLlama, BackendOllama:
	default:
		errs = append(errs, fmt.Errorf("engine.backend must be %q or %q, got %q", BackendLlama, BackendOllama, c.Engine.Backend))
	}
	switch c.Engine.Device {
	case "auto", "cuda", "cpu":
	default:
		errs = append(errs, fmt.Errorf("engine.device must be auto, cuda or cpu, got %q", c.Engine.Device))
	}
	if strings.TrimSpace(c.Engine.Model) == "" {
		errs = append(errs, errors.New("engine.model is required"))
	}
	if c.Engine.Backend == BackendLlama && strings.TrimSpace(c.Engine.ModelPath) == "" {
		errs = append(errs, errors.New("engine.model_path is required for the llama backend"))
	}
	if c.Generation.MaxHistory <= 0 {
		errs = append(errs, errors.New("generation.max_history must be positive"))
	}
	switch c.Session.Backend {
	case SessionMemory, SessionSQLite:
	default:
		errs = append(errs, fmt.Errorf("session.backend must be %q or %q, got %q", SessionMemory, SessionSQLite, c.Session.Backend))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session.secret must not be empty"))
	}
	return errors.Join(errs...)
}
