package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Session.TargetSeconds != nil {
		t.Fatalf("expected unset target seconds")
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[session]
seconds = 15
countdown = 0
unit = "bps"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session.TargetSeconds == nil || *cfg.Session.TargetSeconds != 15 {
		t.Fatalf("expected seconds 15, got %v", cfg.Session.TargetSeconds)
	}
	if cfg.Session.CountdownSeconds == nil || *cfg.Session.CountdownSeconds != 0 {
		t.Fatalf("expected explicit zero countdown")
	}
	if cfg.Session.RateUnit == nil || *cfg.Session.RateUnit != "bps" {
		t.Fatalf("expected unit bps")
	}
	if cfg.Session.TickMs != nil {
		t.Fatalf("expected tick-ms unset")
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("expected log level debug")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[session]\nsecs = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "session.secs") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "ddk", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "ddk", "ddk.db") {
		t.Fatalf("unexpected db path %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "ddk", "ddk.log") {
		t.Fatalf("unexpected log path %s", got)
	}
}
