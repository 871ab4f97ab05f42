// Package config provides unified configuration loading for the aitas
// runtime: defaults, then YAML file, then environment variable overrides.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AITAS").
//	    Load()
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	// Backend is the HTTP diagnosis/workflow service.
	Backend BackendConfig `yaml:"backend" env:"BACKEND"`

	// Room is the media-room transport.
	Room RoomConfig `yaml:"room" env:"ROOM"`

	// Session holds per-conversation tunables.
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Transcript controls session-end export.
	Transcript TranscriptConfig `yaml:"transcript" env:"TRANSCRIPT"`

	// LLM is the language-model endpoint.
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Log configures zap.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures the OTel SDK.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// BackendConfig configures the diagnosis/workflow HTTP service.
type BackendConfig struct {
	// Base URL, e.g. "https://api.example.com". Empty means unconfigured;
	// tool calls that need the backend return a user-facing apology.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// CompanyID scopes workflow listing and fetching.
	CompanyID string `yaml:"company_id" env:"COMPANY_ID"`
	// Timeout applies per HTTP request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RoomConfig configures the media-room connection.
type RoomConfig struct {
	// URL of the room signaling endpoint (ws:// or wss://).
	URL string `yaml:"url" env:"URL"`
	// Token authenticates the session with the room service.
	Token string `yaml:"token" env:"TOKEN"`
	// DialTimeout bounds the initial connection.
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
}

// SessionConfig holds per-conversation tunables.
type SessionConfig struct {
	// DeviceMetadataPrefix identifies the sensor-carrying participant.
	DeviceMetadataPrefix string `yaml:"device_metadata_prefix" env:"DEVICE_METADATA_PREFIX"`
	// RPCTimeout bounds the device data request. Valid range 10s to 40s.
	RPCTimeout time.Duration `yaml:"rpc_timeout" env:"RPC_TIMEOUT"`
	// FillerDelay is the pause before each filler phrase.
	FillerDelay time.Duration `yaml:"filler_delay" env:"FILLER_DELAY"`
	// FillerBackoff is the retry pause after a failed filler utterance.
	FillerBackoff time.Duration `yaml:"filler_backoff" env:"FILLER_BACKOFF"`
	// WorkflowCacheTTL bounds the name->id cache of listed procedures.
	WorkflowCacheTTL time.Duration `yaml:"workflow_cache_ttl" env:"WORKFLOW_CACHE_TTL"`
}

// TranscriptConfig controls session-end export of conversation history.
type TranscriptConfig struct {
	// Dir receives one JSON document per session. Empty disables file export.
	Dir string `yaml:"dir" env:"DIR"`
	// SQLitePath enables the durable transcript store when non-empty.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	// PostReport also POSTs the transcript to the backend report endpoint.
	PostReport bool `yaml:"post_report" env:"POST_REPORT"`
}

// LLMConfig points at an OpenAI-compatible chat-completions endpoint.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Insecure disables TLS on the OTLP connection (local collectors).
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	Port    int  `yaml:"port" env:"PORT"`
}

// Default returns the configuration defaults applied before file and env.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Timeout: 40 * time.Second,
		},
		Room: RoomConfig{
			DialTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			DeviceMetadataPrefix: "android",
			RPCTimeout:           40 * time.Second,
			FillerDelay:          8 * time.Second,
			FillerBackoff:        5 * time.Second,
			WorkflowCacheTTL:     10 * time.Minute,
		},
		Transcript: TranscriptConfig{
			Dir: "/tmp",
		},
		LLM: LLMConfig{
			Model:   "gpt-4o",
			Timeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "aitas",
			OTLPEndpoint: "localhost:4317",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	var errs []string

	if c.Session.RPCTimeout < 10*time.Second || c.Session.RPCTimeout > 40*time.Second {
		errs = append(errs, "session.rpc_timeout must be between 10s and 40s")
	}
	if c.Session.FillerDelay <= 0 {
		errs = append(errs, "session.filler_delay must be positive")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, "invalid metrics port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation: %s", strings.Join(errs, "; "))
	}
	return nil
}
