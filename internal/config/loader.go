package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sumd/internal/profile"
)

// Config holds runtime parameters for the service. Durations are in seconds.
type Config struct {
	Addr           string `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	ModelDir       string `json:"model_dir" yaml:"model_dir" toml:"model_dir" env:"MODEL_DIR"`
	CacheDir       string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" env:"CACHE_DIR"`
	WeightsExt     string `json:"weights_ext" yaml:"weights_ext" toml:"weights_ext" env:"WEIGHTS_EXT"`
	ShardGapPolicy string `json:"shard_gap_policy" yaml:"shard_gap_policy" toml:"shard_gap_policy" env:"SHARD_GAP_POLICY"`

	Engine           string   `json:"engine" yaml:"engine" toml:"engine" env:"ENGINE"`
	EngineURL        string   `json:"engine_url" yaml:"engine_url" toml:"engine_url" env:"ENGINE_URL"`
	EngineAPIKey     string   `json:"engine_api_key" yaml:"engine_api_key" toml:"engine_api_key" env:"ENGINE_API_KEY"`
	EngineModel      string   `json:"engine_model" yaml:"engine_model" toml:"engine_model" env:"ENGINE_MODEL"`
	RuntimeBin       string   `json:"runtime_bin" yaml:"runtime_bin" toml:"runtime_bin" env:"RUNTIME_BIN"`
	RuntimeArgs      []string `json:"runtime_args" yaml:"runtime_args" toml:"runtime_args" env:"RUNTIME_ARGS" envSeparator:" "`
	RuntimeHost      string   `json:"runtime_host" yaml:"runtime_host" toml:"runtime_host" env:"RUNTIME_HOST"`
	RuntimePortStart int      `json:"runtime_port_start" yaml:"runtime_port_start" toml:"runtime_port_start" env:"RUNTIME_PORT_START"`
	RuntimePortEnd   int      `json:"runtime_port_end" yaml:"runtime_port_end" toml:"runtime_port_end" env:"RUNTIME_PORT_END"`
	RuntimeReady     int      `json:"runtime_ready_timeout" yaml:"runtime_ready_timeout" toml:"runtime_ready_timeout" env:"RUNTIME_READY_TIMEOUT"`
	LlamaCtx         int      `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx" env:"LLAMA_CTX"`
	LlamaThreads     int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads" env:"LLAMA_THREADS"`
	LlamaGPULayers   int      `json:"llama_gpu_layers" yaml:"llama_gpu_layers" toml:"llama_gpu_layers" env:"LLAMA_GPU_LAYERS"`

	Meter    string  `json:"meter" yaml:"meter" toml:"meter" env:"METER"`
	TDPWatts float64 `json:"tdp_watts" yaml:"tdp_watts" toml:"tdp_watts" env:"TDP_WATTS"`
	RAPLRoot string  `json:"rapl_root" yaml:"rapl_root" toml:"rapl_root" env:"RAPL_ROOT"`

	Preload        bool  `json:"preload" yaml:"preload" toml:"preload" env:"PRELOAD"`
	MaxQueueDepth  int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" env:"MAX_QUEUE_DEPTH"`
	MaxWait        int   `json:"max_wait" yaml:"max_wait" toml:"max_wait" env:"MAX_WAIT"`
	MaxInputChars  int   `json:"max_input_chars" yaml:"max_input_chars" toml:"max_input_chars" env:"MAX_INPUT_CHARS"`
	MaxBodyBytes   int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	RequestTimeout int64 `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout" env:"REQUEST_TIMEOUT"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" env:"CORS_ENABLED"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" env:"CORS_ORIGINS"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods" env:"CORS_METHODS"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers" env:"CORS_HEADERS"`
	WebDir      string   `json:"web_dir" yaml:"web_dir" toml:"web_dir" env:"WEB_DIR"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" env:"LOG_FORMAT"`

	// Profiles add to or replace the built-in optimized and baseline profiles.
	Profiles []profile.Profile `json:"profiles" yaml:"profiles" toml:"profiles"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SUMD_"

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Addr:           ":8080",
		ModelDir:       "~/models/summarizer",
		CacheDir:       "~/.cache/sumd",
		WeightsExt:     "safetensors",
		ShardGapPolicy: "stop",
		Engine:         "openai",
		EngineURL:      "http://127.0.0.1:8000",
		RuntimeHost:    "127.0.0.1",
		RuntimeReady:   60,
		LlamaCtx:       2048,
		Meter:          "auto",
		Preload:        true,
		MaxQueueDepth:  32,
		MaxWait:        30,
		MaxInputChars:  4000,
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 120,
		LogLevel:       "info",
		LogFormat:      "auto",
	}
}

// Load reads a configuration file based on its extension on top of Default.
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
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays SUMD_* environment variables onto cfg. Unset variables
// leave fields untouched.
func ApplyEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.ShardGapPolicy {
	case "stop", "error":
	default:
		return fmt.Errorf("shard_gap_policy must be stop or error, got %q", c.ShardGapPolicy)
	}
	switch c.Engine {
	case "openai", "runtime", "llama":
	default:
		return fmt.Errorf("engine must be openai, runtime or llama, got %q", c.Engine)
	}
	switch c.Meter {
	case "auto", "rapl", "tdp", "none":
	default:
		return fmt.Errorf("meter must be auto, rapl, tdp or none, got %q", c.Meter)
	}
	if c.MaxInputChars < 1 {
		return fmt.Errorf("max_input_chars must be >= 1")
	}
	for name, v := range map[string]int64{
		"max_queue_depth":       int64(c.MaxQueueDepth),
		"max_wait":              int64(c.MaxWait),
		"runtime_ready_timeout": int64(c.RuntimeReady),
		"request_timeout":       c.RequestTimeout,
		"max_body_bytes":        c.MaxBodyBytes,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.TDPWatts < 0 {
		return fmt.Errorf("tdp_watts must not be negative")
	}
	if _, err := c.ProfileSet(); err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	return nil
}

// ProfileSet returns the built-in profiles with configured overrides applied.
func (c Config) ProfileSet() (*profile.Set, error) {
	return profile.DefaultSet().With(c.Profiles...)
}
