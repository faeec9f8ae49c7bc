package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-3.5-turbo",
	ProviderOllama:    "llama3",
	ProviderGemini:    "gemini-1.5-flash",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOffline:   "offline",
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	RedisURL    string

	LLMProvider      string
	ModelName        string
	SpeechModel      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OllamaBaseURL    string
	GeminiAPIKey     string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	SessionTTL         time.Duration
	SessionIdleTimeout time.Duration
	RequestTimeout     time.Duration
	AudioCacheSize     int

	// OfflineFallback retries failed generations against the offline
	// storyteller.
	OfflineFallback bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if one exists; real environment
// variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))
	defaultModel, ok := defaultModels[provider]
	if !ok {
		return nil, fmt.Errorf("invalid LLM_PROVIDER %q: supported providers are openai, ollama, gemini, anthropic, offline", provider)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	idleTimeout, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}
	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	fallback, err := strconv.ParseBool(getEnv("OFFLINE_FALLBACK", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid OFFLINE_FALLBACK: %w", err)
	}
	cacheSize, err := strconv.Atoi(getEnv("AUDIO_CACHE_SIZE", "16"))
	if err != nil || cacheSize < 1 {
		return nil, fmt.Errorf("invalid AUDIO_CACHE_SIZE: must be a positive integer")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),

		LLMProvider:      provider,
		ModelName:        getEnv("MODEL_NAME", defaultModel),
		SpeechModel:      getEnv("SPEECH_MODEL", "tts-1"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),

		SessionTTL:         sessionTTL,
		SessionIdleTimeout: idleTimeout,
		RequestTimeout:     requestTimeout,
		AudioCacheSize:     cacheSize,
		OfflineFallback:    fallback,
	}, nil
}

// ProviderKey returns the server-side credential for the configured provider.
func (c *Config) ProviderKey() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
