package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, overlays it onto
// [Defaults], and returns a validated [Config]. It is a convenience
// wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Defaults] and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values, matching
// spec §3's stated invariants: timeouts are positive, model paths are
// present, and an unrecognized DTW preset is rejected outright (spec
// §4.2: "fatal startup error") rather than merely warned about.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Server.ReadTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout_seconds must be positive, got %d", cfg.Server.ReadTimeoutSeconds))
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout_seconds must be positive, got %d", cfg.Server.WriteTimeoutSeconds))
	}
	if cfg.Server.MaxWSSessions <= 0 {
		errs = append(errs, fmt.Errorf("server.max_ws_sessions must be positive, got %d", cfg.Server.MaxWSSessions))
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("server.idle_timeout_seconds must be positive, got %d", cfg.Server.IdleTimeoutSeconds))
	}

	if cfg.Models.Cold.Path == "" {
		errs = append(errs, fmt.Errorf("models.cold.path is required"))
	}
	if cfg.Models.Hot.Path == "" {
		errs = append(errs, fmt.Errorf("models.hot.path is required"))
	}
	if !cfg.Models.Cold.DTW.Valid() {
		errs = append(errs, fmt.Errorf("models.cold.dtw_preset %q is not a recognized preset", cfg.Models.Cold.DTW))
	}
	if !cfg.Models.Hot.DTW.Valid() {
		errs = append(errs, fmt.Errorf("models.hot.dtw_preset %q is not a recognized preset", cfg.Models.Hot.DTW))
	}

	if cfg.Server.HotStreamLengthMs <= 0 {
		errs = append(errs, fmt.Errorf("server.hot_stream_length_ms must be positive, got %d", cfg.Server.HotStreamLengthMs))
	}
	if cfg.Server.HotStreamKeepMs < 0 {
		errs = append(errs, fmt.Errorf("server.hot_stream_keep_ms must not be negative, got %d", cfg.Server.HotStreamKeepMs))
	}

	if cfg.Server.EnableConverter && cfg.Server.FFmpegPath == "" {
		slog.Warn("config: converter enabled with no explicit ffmpeg_path; resolving \"ffmpeg\" via PATH")
	}

	return errors.Join(errs...)
}
