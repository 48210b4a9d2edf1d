// Package config provides the configuration schema and loader for the
// whisperd server.
package config

import "github.com/whisperd/whisperd/internal/engine"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for whisperd. It is
// typically loaded from a YAML file with [Load] or [LoadFromReader] and
// then overlaid with CLI flags — spec §6.3 treats flags as the primary
// control surface; the YAML file supplements values that don't fit
// comfortably on a flag line.
type Config struct {
	LogLevel LogLevel     `yaml:"log_level"`
	Server   ServerConfig `yaml:"server"`
	Models   ModelsConfig `yaml:"models"`
}

// ServerConfig holds the network and resource settings spec §3's "Server
// configuration" data model names.
type ServerConfig struct {
	// Host is the interface the HTTP and WebSocket listeners bind to.
	Host string `yaml:"host"`

	// HTTPPort is the batch/streaming HTTP listener's port. The WebSocket
	// listener's port is derived as HTTPPort+1000 (spec §3) unless WSPort
	// is set explicitly.
	HTTPPort int `yaml:"http_port"`

	// WSPort overrides the derived WebSocket port. Zero means derive it.
	WSPort int `yaml:"ws_port"`

	// RequestPathPrefix is prepended to every domain endpoint
	// (spec §4.7's "<request_path>").
	RequestPathPrefix string `yaml:"request_path_prefix"`

	// InferencePathSuffix overrides the "/inference" suffix, for
	// deployments that front whisperd with a path-rewriting proxy.
	InferencePathSuffix string `yaml:"inference_path_suffix"`

	// ReadTimeoutSeconds and WriteTimeoutSeconds bound socket I/O
	// (spec §5, default 600s each).
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`

	// PublicPath is the static file root served at the request prefix.
	PublicPath string `yaml:"public_path"`

	// EnableConverter turns on the FFmpeg fallback for non-WAV uploads
	// (spec §4.1).
	EnableConverter bool `yaml:"enable_converter"`

	// FFmpegPath overrides the ffmpeg binary location; empty resolves
	// "ffmpeg" via PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// MaxWSSessions is the WebSocket concurrency ceiling
	// (spec §5, default 10).
	MaxWSSessions int `yaml:"max_ws_sessions"`

	// IdleTimeoutSeconds is the open-connection idle-reap timeout
	// (spec §5, default 60s).
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`

	// HotStreamLengthMs and HotStreamKeepMs configure the HTTP
	// /hot_stream chunked trigger and retention (spec §4.3 Mode B).
	HotStreamLengthMs int `yaml:"hot_stream_length_ms"`
	HotStreamKeepMs   int `yaml:"hot_stream_keep_ms"`
}

// EffectiveWSPort returns WSPort if set, otherwise HTTPPort+1000 per
// spec §3's fixed derivation.
func (s ServerConfig) EffectiveWSPort() int {
	if s.WSPort != 0 {
		return s.WSPort
	}
	return s.HTTPPort + 1000
}

// ModelsConfig names the two model files and load options spec §4.2
// requires at startup.
type ModelsConfig struct {
	Cold ModelConfig `yaml:"cold"`
	Hot  ModelConfig `yaml:"hot"`
}

// ModelConfig is one engine handle's load-time configuration.
type ModelConfig struct {
	Path      string           `yaml:"path"`
	UseGPU    bool             `yaml:"use_gpu"`
	FlashAttn bool             `yaml:"flash_attn"`
	DTW       engine.DTWPreset `yaml:"dtw_preset"`
}

// Options converts a ModelConfig into the engine.Options its Loader
// expects.
func (m ModelConfig) Options() engine.Options {
	return engine.Options{UseGPU: m.UseGPU, FlashAttn: m.FlashAttn, DTW: m.DTW}
}

// Defaults returns the startup defaults a Config is overlaid onto before
// YAML/flag values are applied.
func Defaults() Config {
	return Config{
		LogLevel: LogInfo,
		Server: ServerConfig{
			Host:                "0.0.0.0",
			HTTPPort:            8080,
			InferencePathSuffix: "/inference",
			ReadTimeoutSeconds:  600,
			WriteTimeoutSeconds: 600,
			MaxWSSessions:       10,
			IdleTimeoutSeconds:  60,
			HotStreamLengthMs:   1100,
			HotStreamKeepMs:     200,
		},
	}
}
