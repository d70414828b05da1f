package config

// Engine backends.
const (
	BackendLlama  = "llama"
	BackendOllama = "ollama"
)

// Session store backends.
const (
	SessionMemory = "memory"
	SessionSQLite = "sqlite"
)

// DevSecret is the placeholder session secret. The server warns when it is
// still in use.
const DevSecret = "a-default-development-secret-key"

// DefaultSystemPrompt frames the assistant for the fitness app front end.
const DefaultSystemPrompt = "You are DracoBot, a fitness assistant for the DracoFit application. " +
	"You help users with workout recommendations, nutrition advice, and fitness goals. " +
	"You should provide accurate information and support users in their fitness journey. " +
	"Answer all questions directly, including questions about your identity as an AI assistant. " +
	"Keep responses concise, informative, and focused on fitness."

// Config holds runtime parameters for the service.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`

	Engine     EngineConfig     `json:"engine" yaml:"engine" toml:"engine" envPrefix:"ENGINE_"`
	Generation GenerationConfig `json:"generation" yaml:"generation" toml:"generation" envPrefix:"GEN_"`
	Session    SessionConfig    `json:"session" yaml:"session" toml:"session" envPrefix:"SESSION_"`
	CORS       CORSConfig       `json:"cors" yaml:"cors" toml:"cors" envPrefix:"CORS_"`
}

// EngineConfig selects and tunes the inference engine.
type EngineConfig struct {
	Backend   string `json:"backend" yaml:"backend" toml:"backend" env:"BACKEND"`
	Model     string `json:"model" yaml:"model" toml:"model" env:"MODEL"`
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path" env:"MODEL_PATH"`
	OllamaURL string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url" env:"OLLAMA_URL"`
	// Device is auto, cuda or cpu.
	Device      string `json:"device" yaml:"device" toml:"device" env:"DEVICE"`
	ContextSize int    `json:"context_size" yaml:"context_size" toml:"context_size" env:"CONTEXT_SIZE"`
	Threads     int    `json:"threads" yaml:"threads" toml:"threads" env:"THREADS"`
	GPULayers   int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers" env:"GPU_LAYERS"`

	IdleTimeoutSeconds   int `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds" toml:"idle_timeout_seconds" env:"IDLE_TIMEOUT_SECONDS"`
	IdleCheckSeconds     int `json:"idle_check_seconds" yaml:"idle_check_seconds" toml:"idle_check_seconds" env:"IDLE_CHECK_SECONDS"`
	HandoffBuffer        int `json:"handoff_buffer" yaml:"handoff_buffer" toml:"handoff_buffer" env:"HANDOFF_BUFFER"`
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds" yaml:"shutdown_grace_seconds" toml:"shutdown_grace_seconds" env:"SHUTDOWN_GRACE_SECONDS"`
}

// GenerationConfig carries sampling parameters passed through to the engine.
type GenerationConfig struct {
	SystemPrompt  string   `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt" env:"SYSTEM_PROMPT"`
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" env:"MAX_TOKENS"`
	Temperature   float32  `json:"temperature" yaml:"temperature" toml:"temperature" env:"TEMPERATURE"`
	TopP          float32  `json:"top_p" yaml:"top_p" toml:"top_p" env:"TOP_P"`
	TopK          int      `json:"top_k" yaml:"top_k" toml:"top_k" env:"TOP_K"`
	RepeatPenalty float32  `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty" env:"REPEAT_PENALTY"`
	Stop          []string `json:"stop" yaml:"stop" toml:"stop" env:"STOP"`
	// MaxHistory caps the conversation kept per session.
	MaxHistory int `json:"max_history" yaml:"max_history" toml:"max_history" env:"MAX_HISTORY"`
}

// SessionConfig controls cookie sessions holding conversation history.
type SessionConfig struct {
	Backend    string `json:"backend" yaml:"backend" toml:"backend" env:"BACKEND"`
	Path       string `json:"path" yaml:"path" toml:"path" env:"PATH"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds" env:"TTL_SECONDS"`
	Secret     string `json:"secret" yaml:"secret" toml:"secret" env:"SECRET"`
	CookieName string `json:"cookie_name" yaml:"cookie_name" toml:"cookie_name" env:"COOKIE_NAME"`
	Secure     bool   `json:"secure" yaml:"secure" toml:"secure" env:"SECURE"`
}

// CORSConfig enables credentialed CORS for browser front ends.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins" env:"ORIGINS"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         ":5000",
		LogLevel:     "info",
		MaxBodyBytes: 1 << 20,
		Engine: EngineConfig{
			Backend:              BackendOllama,
			Model:                "gemma2:2b",
			OllamaURL:            "http://127.0.0.1:11434",
			Device:               "auto",
			ContextSize:          4096,
			IdleTimeoutSeconds:   3600,
			IdleCheckSeconds:     60,
			HandoffBuffer:        64,
			ShutdownGraceSeconds: 5,
		},
		Generation: GenerationConfig{
			SystemPrompt:  DefaultSystemPrompt,
			MaxTokens:     1024,
			Temperature:   0.3,
			TopP:          0.85,
			TopK:          40,
			RepeatPenalty: 1.2,
			MaxHistory:    10,
		},
		Session: SessionConfig{
			Backend:    SessionMemory,
			Path:       "~/.local/share/chatd/sessions.db",
			TTLSeconds: 31 * 24 * 3600,
			Secret:     DevSecret,
			CookieName: "chatd_session",
		},
		CORS: CORSConfig{
			Enabled: true,
			Origins: []string{"http://localhost:5173"},
		},
	}
}
