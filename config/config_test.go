package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvWhenNoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "tg-token")
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("AI_MAX_TOKENS", "512")
	t.Setenv("ONBOARDING_FINALIZE_DELAY", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tg-token", cfg.Telegram.Token)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 512, cfg.AI.MaxTokens)
	assert.Equal(t, 250*time.Millisecond, cfg.Onboarding.FinalizeDelay)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  token: ${TEST_TG_TOKEN}
ai:
  provider: gemini
  apikey: plain-key
server:
  port: "9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TEST_TG_TOKEN", "expanded")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "expanded", cfg.Telegram.Token)
	assert.Equal(t, "plain-key", cfg.AI.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Onboarding.FinalizeDelay)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  token: file-token
ai:
  provider: gemini
  apikey: file-key
  maxtokens: 256
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("AI_API_KEY", "env-key")
	t.Setenv("AI_MAX_TOKENS", "2048")
	t.Setenv("ONBOARDING_FINALIZE_DELAY", "500ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, 2048, cfg.AI.MaxTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.Onboarding.FinalizeDelay)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Telegram.Token = "t"
		cfg.AI.APIKey = "k"
		cfg.AI.Provider = ProviderGemini
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = "" }, wantErr: true},
		{name: "missing api key", mutate: func(c *Config) { c.AI.APIKey = "" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "llama" }, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.Onboarding.FinalizeDelay = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
