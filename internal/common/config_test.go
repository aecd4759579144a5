package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8085 {
		t.Errorf("default port = %d, want 8085", config.Server.Port)
	}
	if config.Storage.Type != "badger" {
		t.Errorf("default storage type = %q, want badger", config.Storage.Type)
	}
	if config.Generation.TextProvider != "gemini" {
		t.Errorf("default text provider = %q, want gemini", config.Generation.TextProvider)
	}
	if config.Jobs.DefaultMassLimit != 50 {
		t.Errorf("default mass limit = %d, want 50", config.Jobs.DefaultMassLimit)
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	if err := os.WriteFile(base, []byte(`
environment = "production"

[server]
port = 9090

[generation]
text_provider = "claude"
recipe_delay = "2s"
`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	override := filepath.Join(dir, "override.toml")
	if err := os.WriteFile(override, []byte(`
[server]
port = 9999
`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	config, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("environment = %q, want production", config.Environment)
	}
	// Later files win
	if config.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", config.Server.Port)
	}
	if config.Generation.TextProvider != "claude" {
		t.Errorf("text provider = %q, want claude", config.Generation.TextProvider)
	}
	// Untouched keys keep their defaults
	if config.Jobs.ReconciliationSweep != "*/5 * * * *" {
		t.Errorf("sweep schedule = %q, want default", config.Jobs.ReconciliationSweep)
	}
	if config.RecipeDelay() != 2*time.Second {
		t.Errorf("recipe delay = %v, want 2s", config.RecipeDelay())
	}
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("loading a missing file must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COQUO_SERVER_PORT", "7070")
	t.Setenv("COQUO_TEXT_PROVIDER", "claude")
	t.Setenv("COQUO_BADGER_PATH", "/tmp/coquo-test")

	config, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", config.Server.Port)
	}
	if config.Generation.TextProvider != "claude" {
		t.Errorf("text provider = %q, want claude", config.Generation.TextProvider)
	}
	if config.Storage.Badger.Path != "/tmp/coquo-test" {
		t.Errorf("badger path = %q", config.Storage.Badger.Path)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	if config.Server.Port != 8085 || config.Server.Host != "localhost" {
		t.Error("zero-value flags must not override config")
	}

	ApplyFlagOverrides(config, 3000, "0.0.0.0")
	if config.Server.Port != 3000 || config.Server.Host != "0.0.0.0" {
		t.Errorf("flags must win: port=%d host=%q", config.Server.Port, config.Server.Host)
	}
}

func TestDurationHelperFallbacks(t *testing.T) {
	config := NewDefaultConfig()

	config.Generation.Timeout = "not-a-duration"
	if config.GenerationTimeout() != 120*time.Second {
		t.Errorf("bad timeout must fall back to 120s, got %v", config.GenerationTimeout())
	}

	config.Generation.RecipeDelay = "-5s"
	if config.RecipeDelay() != time.Second {
		t.Errorf("non-positive delay must fall back to 1s, got %v", config.RecipeDelay())
	}

	config.Jobs.ReconciliationTTL = ""
	if config.ReconciliationTTL() != 30*time.Minute {
		t.Errorf("empty TTL must fall back to 30m, got %v", config.ReconciliationTTL())
	}

	config.Generation.Timeout = "45s"
	if config.GenerationTimeout() != 45*time.Second {
		t.Errorf("valid timeout must parse, got %v", config.GenerationTimeout())
	}
}
