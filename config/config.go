// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"Telegram.Token":           "TELEGRAM_TOKEN",
	"Telegram.Debug":           "TELEGRAM_DEBUG",
	"AI.Provider":              "AI_PROVIDER",
	"AI.APIKey":                "AI_API_KEY",
	"AI.Model":                 "AI_MODEL",
	"AI.TranscriptionModel":    "AI_TRANSCRIPTION_MODEL",
	"AI.MaxTokens":             "AI_MAX_TOKENS",
	"AI.Temperature":           "AI_TEMPERATURE",
	"Onboarding.FinalizeDelay": "ONBOARDING_FINALIZE_DELAY",
	"Server.Port":              "SERVER_PORT",
	"ShutdownTimeout":          "SHUTDOWN_TIMEOUT",
}

type Config struct {
	Telegram struct {
		Token string
		Debug bool
	}
	AI struct {
		Provider           string
		APIKey             string
		Model              string
		TranscriptionModel string
		MaxTokens          int
		Temperature        float32
	}
	Onboarding struct {
		FinalizeDelay time.Duration
	}
	Server struct {
		Port string
	}
	ShutdownTimeout time.Duration
}

// Load reads the configuration. An explicit path wins over the search paths;
// when no file is found the environment alone is used.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("$HOME/.nutri-bot")
	}

	setDefaults(v)

	// Environment variables override config values under the same names fromEnv reads
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
		return fromEnv(), nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("AI.Provider", ProviderGemini)
	v.SetDefault("AI.Model", defaultModel(ProviderGemini))
	v.SetDefault("AI.TranscriptionModel", "whisper-1")
	v.SetDefault("AI.MaxTokens", 1024)
	v.SetDefault("AI.Temperature", 0.7)
	v.SetDefault("Onboarding.FinalizeDelay", 2*time.Second)
	v.SetDefault("Server.Port", "8080")
}

func fromEnv() *Config {
	cfg := &Config{}

	cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	cfg.Telegram.Debug = getEnvBool("TELEGRAM_DEBUG", false)
	cfg.AI.Provider = strings.ToLower(getEnvOr("AI_PROVIDER", ProviderGemini))
	cfg.AI.APIKey = os.Getenv("AI_API_KEY")
	cfg.AI.Model = getEnvOr("AI_MODEL", defaultModel(cfg.AI.Provider))
	cfg.AI.TranscriptionModel = getEnvOr("AI_TRANSCRIPTION_MODEL", "whisper-1")
	cfg.AI.MaxTokens = getEnvInt("AI_MAX_TOKENS", 1024)
	cfg.AI.Temperature = float32(getEnvFloat("AI_TEMPERATURE", 0.7))
	cfg.Onboarding.FinalizeDelay = getEnvDuration("ONBOARDING_FINALIZE_DELAY", 2*time.Second)
	cfg.Server.Port = getEnvOr("SERVER_PORT", "8080")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	return cfg
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is not configured")
	}
	if c.AI.APIKey == "" {
		return errors.New("AI API key is not configured")
	}
	switch c.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown AI provider %q", c.AI.Provider)
	}
	if c.Onboarding.FinalizeDelay < 0 {
		return errors.New("onboarding finalize delay must not be negative")
	}
	return nil
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o"
	}
	return "gemini-2.5-flash"
}

// Helper function to get environment variable with default value
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 32); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
