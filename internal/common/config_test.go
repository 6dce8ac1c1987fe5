package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8190 {
		t.Errorf("expected default port 8190, got %d", cfg.Server.Port)
	}
	if cfg.Sync.Schedule != "*/15 * * * *" {
		t.Errorf("unexpected default schedule %q", cfg.Sync.Schedule)
	}
	if !cfg.Sync.Enabled {
		t.Error("expected sync enabled by default")
	}
	if cfg.Sync.PageSize != 100 {
		t.Errorf("expected default page size 100, got %d", cfg.Sync.PageSize)
	}
	if cfg.Trackers.Dir != "./trackers" {
		t.Errorf("unexpected default trackers dir %q", cfg.Trackers.Dir)
	}
}

func TestLoadFromFilesLayering(t *testing.T) {
	dir := t.TempDir()

	base := writeConfigFile(t, dir, "base.toml", `
environment = "production"

[server]
port = 9000

[sync]
schedule = "0 * * * *"
`)
	override := writeConfigFile(t, dir, "override.toml", `
[server]
port = 9100
`)

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	// Later file wins
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	// Earlier file values survive where not overridden
	if cfg.Environment != "production" {
		t.Errorf("expected environment production, got %q", cfg.Environment)
	}
	if cfg.Sync.Schedule != "0 * * * *" {
		t.Errorf("expected schedule from file, got %q", cfg.Sync.Schedule)
	}
	// Defaults survive where no file sets a value
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	if _, err := LoadFromFiles("/nonexistent/nexo.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEXO_SERVER_PORT", "9999")
	t.Setenv("NEXO_SYNC_ENABLED", "false")
	t.Setenv("NEXO_TM_BASE_URL", "https://tm.example.com")
	t.Setenv("NEXO_LOG_LEVEL", "debug")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999 from env, got %d", cfg.Server.Port)
	}
	if cfg.Sync.Enabled {
		t.Error("expected sync disabled via env")
	}
	if cfg.TestManagement.BaseURL != "https://tm.example.com" {
		t.Errorf("unexpected base url %q", cfg.TestManagement.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()

	ApplyFlagOverrides(cfg, 7777, "0.0.0.0")
	if cfg.Server.Port != 7777 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("flag overrides not applied: %d %s", cfg.Server.Port, cfg.Server.Host)
	}

	// Zero values leave config untouched
	ApplyFlagOverrides(cfg, 0, "")
	if cfg.Server.Port != 7777 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("zero flags should not override: %d %s", cfg.Server.Port, cfg.Server.Host)
	}
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test-management credentials are required
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error without test-management settings")
	}

	cfg.TestManagement.BaseURL = "https://tm.example.com"
	cfg.TestManagement.Username = "sync-bot"
	cfg.TestManagement.APIKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
