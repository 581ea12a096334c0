// Package config holds the assistant's runtime settings: API credential,
// model tiers, chat prefix, history bounds, party references and content
// library references. Settings are read from a YAML file for the CLI harness
// and round-trip through the host's key-value settings surface.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// SettingsKey is the namespaced settings key holding the serialized config.
const SettingsKey = "ryoma.config"

// EnvAPIKey overrides the configured credential when set.
const EnvAPIKey = "RYOMA_API_KEY"

// Config is the full assistant configuration.
type Config struct {
	// APIKey is the bearer credential for the completion endpoint.
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL is the chat-completions endpoint root.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// DefaultModel handles ordinary requests; ComplexModel handles requests
	// the complexity heuristic flags (creation/modification asks).
	DefaultModel string `yaml:"default_model" json:"default_model"`
	ComplexModel string `yaml:"complex_model" json:"complex_model"`

	// Prefix is the chat command prefix recognized at the start of a line.
	Prefix string `yaml:"prefix" json:"prefix"`

	// UseStructuredTools selects native function calling; when false the
	// gateway runs in text-delimited fallback mode.
	UseStructuredTools bool `yaml:"use_structured_tools" json:"use_structured_tools"`

	// HistoryWindow caps how many recent messages enter the prompt context.
	HistoryWindow int `yaml:"history_window" json:"history_window"`

	// MaxHistory bounds total transcript retention.
	MaxHistory int `yaml:"max_history" json:"max_history"`

	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`

	// PartyRefs lists the party member entity references.
	PartyRefs []string `yaml:"party_refs" json:"party_refs"`

	// Libraries maps a content category ("actors", "items", "spells") to the
	// library names configured for it.
	Libraries map[string][]string `yaml:"libraries" json:"libraries"`
}

// Default returns the configuration used when nothing is stored.
func Default() Config {
	return Config{
		BaseURL:            "https://api.openai.com/v1",
		DefaultModel:       "gpt-4o-mini",
		ComplexModel:       "gpt-4o",
		Prefix:             "!R",
		UseStructuredTools: true,
		HistoryWindow:      20,
		MaxHistory:         100,
		Temperature:        0.7,
		MaxTokens:          2048,
		Libraries:          map[string][]string{},
	}
}

// LoadFile reads a YAML config file, filling unset fields with defaults.
// A missing file is not an error; defaults are returned.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	cfg.applyEnv()
	return cfg, nil
}

// LoadSettings reads the config stored in the host's key-value surface.
// Treats missing or unreadable config as defaults.
func LoadSettings(settings types.SettingsStore) Config {
	cfg := Default()
	if settings == nil {
		cfg.applyEnv()
		return cfg
	}
	raw, ok := settings.Get(SettingsKey)
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			cfg = Default()
		}
	}
	cfg.normalize()
	cfg.applyEnv()
	return cfg
}

// SaveSettings writes the config back to the host's key-value surface.
func SaveSettings(settings types.SettingsStore, cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return settings.Set(SettingsKey, string(data))
}

func (c *Config) normalize() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.DefaultModel == "" {
		c.DefaultModel = d.DefaultModel
	}
	if c.ComplexModel == "" {
		c.ComplexModel = c.DefaultModel
	}
	if c.Prefix == "" {
		c.Prefix = d.Prefix
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = d.MaxHistory
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Libraries == nil {
		c.Libraries = map[string][]string{}
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.APIKey = key
	}
}
