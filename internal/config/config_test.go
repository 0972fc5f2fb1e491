package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Raps.Binary != "raps" {
		t.Errorf("Binary = %q, want raps", cfg.Raps.Binary)
	}
	if cfg.Raps.StepTimeout != 5*time.Minute {
		t.Errorf("StepTimeout = %s, want 5m", cfg.Raps.StepTimeout)
	}
	if cfg.Engine.CleanupWorkers != 1 {
		t.Errorf("CleanupWorkers = %d, want 1", cfg.Engine.CleanupWorkers)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1"

[raps]
binary = "raps-dev"

[engine]
retry_attempts = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Raps.Binary != "raps-dev" {
		t.Errorf("Binary = %q, want raps-dev", cfg.Raps.Binary)
	}
	if cfg.Engine.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", cfg.Engine.RetryAttempts)
	}
	// Untouched settings keep their defaults.
	if cfg.Raps.CleanupTimeout != time.Minute {
		t.Errorf("CleanupTimeout = %s, want 1m", cfg.Raps.CleanupTimeout)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() of missing file should not error: %v", err)
	}
	if cfg.Raps.Binary != "raps" {
		t.Errorf("Binary = %q, want default", cfg.Raps.Binary)
	}
}

func TestLoadFromDirProjectOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".rapsflow")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `
version = "1"

[raps]
step_timeout = "30s"
`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir() error: %v", err)
	}
	if cfg.Raps.StepTimeout != 30*time.Second {
		t.Errorf("StepTimeout = %s, want 30s", cfg.Raps.StepTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty binary", func(c *Config) { c.Raps.Binary = "" }, true},
		{"zero step timeout", func(c *Config) { c.Raps.StepTimeout = 0 }, true},
		{"zero cleanup timeout", func(c *Config) { c.Raps.CleanupTimeout = 0 }, true},
		{"zero retry attempts", func(c *Config) { c.Engine.RetryAttempts = 0 }, true},
		{"zero cleanup workers", func(c *Config) { c.Engine.CleanupWorkers = 0 }, true},
		{"empty workflows dir", func(c *Config) { c.Paths.WorkflowsDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
