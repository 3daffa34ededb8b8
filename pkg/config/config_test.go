package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.NotEmpty(t, cfg.Model)
	assert.Positive(t, cfg.MaxTokens)
	assert.Equal(t, 30, cfg.RetryDelaySeconds)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_key = "sk-file"
model = "claude-opus-4-20250514"
max_tokens = 2048
system_prompt = "You help with 3D models."
retry_delay_seconds = 5
debug = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.APIKey)
	assert.Equal(t, "claude-opus-4-20250514", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, "You help with 3D models.", cfg.SystemPrompt)
	assert.Equal(t, 5, cfg.RetryDelaySeconds)
	assert.True(t, cfg.Debug)
}

func TestLoadFallsBackToEnvAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	path := filepath.Join(t.TempDir(), "scribe.toml")
	require.NoError(t, os.WriteFile(path, []byte(`model = "claude-opus-4-20250514"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.APIKey)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_key = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatcherDeliversReloads(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	path := filepath.Join(t.TempDir(), "scribe.toml")
	require.NoError(t, os.WriteFile(path, []byte(`api_key = "sk-one"`), 0o644))

	reloads := make(chan Config, 8)
	w, err := NewWatcher(path, func(cfg Config) { reloads <- cfg }, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte(`api_key = "sk-two"`), 0o644))

	select {
	case cfg := <-reloads:
		assert.Equal(t, "sk-two", cfg.APIKey)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a config reload")
	}
}
