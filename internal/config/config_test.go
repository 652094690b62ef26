package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"convocoach/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Paths.DataDir == "" || strings.HasPrefix(cfg.Paths.DataDir, "~") {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[logging]
format = "JSON"
level = "Debug"

[analysis]
enabled = true
api_key = "test-key"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
	if !cfg.Analysis.Enabled || cfg.Analysis.APIKey != "test-key" {
		t.Fatalf("unexpected analysis config: %+v", cfg.Analysis)
	}
	if cfg.Analysis.BaseURL == "" || cfg.Analysis.Model == "" {
		t.Fatal("expected analysis defaults to be filled in")
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestAnalysisEnabledRequiresKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONVOCOACH_ANALYSIS_API_KEY", "")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error when analysis enabled without api key")
	}
}

func TestAnalysisKeyEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONVOCOACH_ANALYSIS_API_KEY", "env-key")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.APIKey != "env-key" {
		t.Fatalf("expected env fallback, got %q", cfg.Analysis.APIKey)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", p, err)
		}
	}
}
