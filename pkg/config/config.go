// Package config loads engine configuration from a TOML file and watches
// it for changes so a running process picks up edits without a restart.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/scribe/pkg/wire"
)

// Config is the engine configuration.
type Config struct {
	// APIKey is the Messages API credential. Falls back to the
	// ANTHROPIC_API_KEY environment variable when empty.
	APIKey string `toml:"api_key"`

	// Model is the model identifier used for sends.
	Model string `toml:"model"`

	// MaxTokens caps the response length per send.
	MaxTokens int `toml:"max_tokens"`

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string `toml:"system_prompt"`

	// Endpoint overrides the production API endpoint when non-empty.
	Endpoint string `toml:"endpoint"`

	// RetryDelaySeconds is the wait before resending after a rate limit
	// when the server supplies no delay.
	RetryDelaySeconds int `toml:"retry_delay_seconds"`

	// ListenAddr is the history inspection server's listen address.
	ListenAddr string `toml:"listen_addr"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Model:             wire.DefaultModel(),
		MaxTokens:         16000,
		RetryDelaySeconds: 30,
		ListenAddr:        ":8080",
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults. The ANTHROPIC_API_KEY environment variable fills
// in the API key when the file does not set one.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = wire.DefaultModel()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = Default().MaxTokens
	}
	if cfg.RetryDelaySeconds <= 0 {
		cfg.RetryDelaySeconds = Default().RetryDelaySeconds
	}

	return cfg, nil
}
