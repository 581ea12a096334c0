package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/host"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Prefix != "!R" {
		t.Errorf("Expected default prefix !R, got %q", cfg.Prefix)
	}
	if !cfg.UseStructuredTools {
		t.Error("Structured tools should default on")
	}
	if cfg.HistoryWindow != 20 || cfg.MaxHistory != 100 {
		t.Errorf("Unexpected history bounds: window=%d max=%d", cfg.HistoryWindow, cfg.MaxHistory)
	}
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prefix != Default().Prefix {
		t.Errorf("Missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadFileFillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api_key: file-key
default_model: custom-small
prefix: "!gm"
libraries:
  items:
    - srd-items
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "file-key" || cfg.Prefix != "!gm" {
		t.Errorf("File values not loaded: %+v", cfg)
	}
	if cfg.DefaultModel != "custom-small" {
		t.Errorf("Expected file model, got %q", cfg.DefaultModel)
	}
	// Unset complex model falls back to the default model rather than the
	// shipped default.
	if cfg.ComplexModel != "custom-small" {
		t.Errorf("Expected complex model to follow default model, got %q", cfg.ComplexModel)
	}
	if cfg.HistoryWindow != 20 {
		t.Errorf("Unset fields should take defaults, got window=%d", cfg.HistoryWindow)
	}
	if got := cfg.Libraries["items"]; len(got) != 1 || got[0] != "srd-items" {
		t.Errorf("Libraries not loaded: %+v", cfg.Libraries)
	}
}

func TestLoadFileMalformedIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("prefix: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_key: file-key\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAPIKey, "env-key")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("Environment credential must win, got %q", cfg.APIKey)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	settings := host.NewMemorySettings()

	cfg := Default()
	cfg.APIKey = "stored-key"
	cfg.PartyRefs = []string{"ref-1", "ref-2"}
	if err := SaveSettings(settings, cfg); err != nil {
		t.Fatal(err)
	}

	loaded := LoadSettings(settings)
	if loaded.APIKey != "stored-key" {
		t.Errorf("Credential lost in round trip: %+v", loaded)
	}
	if len(loaded.PartyRefs) != 2 {
		t.Errorf("Party refs lost: %+v", loaded.PartyRefs)
	}
}

func TestLoadSettingsCorruptFallsBackToDefaults(t *testing.T) {
	settings := host.NewMemorySettings()
	if err := settings.Set(SettingsKey, "{not json"); err != nil {
		t.Fatal(err)
	}
	cfg := LoadSettings(settings)
	if cfg.Prefix != Default().Prefix {
		t.Errorf("Corrupt settings should fall back to defaults, got %+v", cfg)
	}
}
