package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/whisperd/whisperd/internal/config"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags([]string{"--cold-model", "cold.bin", "--hot-model", "hot.bin"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.Server.HTTPPort)
	}
	if cfg.Models.Cold.Path != "cold.bin" {
		t.Errorf("Cold.Path = %q, want cold.bin", cfg.Models.Cold.Path)
	}
	if cfg.Models.Hot.Path != "hot.bin" {
		t.Errorf("Hot.Path = %q, want hot.bin", cfg.Models.Hot.Path)
	}
}

func TestParseFlags_MissingModelsFailsValidation(t *testing.T) {
	_, err := parseFlags(nil)
	if err == nil {
		t.Fatal("expected validation error with no model paths set")
	}
}

func TestParseFlags_FlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whisperd.yaml")
	yamlBody := `
server:
  host: "0.0.0.0"
  http_port: 9090
  read_timeout_seconds: 600
  write_timeout_seconds: 600
  max_ws_sessions: 10
  idle_timeout_seconds: 60
  hot_stream_length_ms: 1100
  hot_stream_keep_ms: 200
models:
  cold:
    path: "config-cold.bin"
  hot:
    path: "config-hot.bin"
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := parseFlags([]string{"--config", path, "--port", "7000"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Server.HTTPPort != 7000 {
		t.Errorf("HTTPPort = %d, want 7000 (flag should override config file)", cfg.Server.HTTPPort)
	}
	if cfg.Models.Cold.Path != "config-cold.bin" {
		t.Errorf("Cold.Path = %q, want config-cold.bin (from config file)", cfg.Models.Cold.Path)
	}
}

func TestParseFlags_InvalidLogLevelFailsValidation(t *testing.T) {
	_, err := parseFlags([]string{
		"--cold-model", "cold.bin",
		"--hot-model", "hot.bin",
		"--log-level", "verbose",
	})
	if err == nil {
		t.Fatal("expected validation error for unrecognized log level")
	}
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, lvl := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError, ""} {
		if l := newLogger(lvl); l == nil {
			t.Errorf("newLogger(%q) returned nil", lvl)
		}
	}
}
