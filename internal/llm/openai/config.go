// Package openai implements the llm.Gateway contract against the OpenAI
// chat-completions API (and any OpenAI-compatible endpoint).
package openai

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/pocketomega/pocket-omega/internal/llm"
)

// Config holds OpenAI-compatible LLM configuration.
type Config struct {
	APIKey        string   // API key for authentication
	BaseURL       string   // Base URL (default: https://api.openai.com/v1)
	Model         string   // Model name (default: gpt-4o)
	Temperature   *float32 // Response creativity 0.0-2.0 (nil = API default)
	MaxTokens     int      // Max tokens in response, 0 = no limit
	MaxRetries    int      // retries after any failed request, whatever the error (default: 1)
	HTTPTimeout   int      // HTTP client timeout in seconds (default: 300)
	ContextWindow int      // context window in tokens (0 = auto-detect from model name)
}

// NewConfigFromEnv creates Config from environment variables.
// Expected vars: OPENAI_API_KEY, LLM_BASE_URL, LLM_MODEL, LLM_TEMPERATURE,
// LLM_MAX_TOKENS, LLM_MAX_RETRIES, LLM_HTTP_TIMEOUT, LLM_CONTEXT_WINDOW.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:        getEnvOrDefault("OPENAI_API_KEY", ""),
		BaseURL:       getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:         getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		Temperature:   getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:     getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:    getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout:   getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
		ContextWindow: getEnvIntOrDefault("LLM_CONTEXT_WINDOW", 0),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfigFromEnvOverride builds a Config for a provider that reuses this
// package's Client but sources its API key, base URL, and model from
// different environment variables (used by the groq adapter). The shared
// tuning knobs (temperature, max tokens, retries, timeout) still come from
// the common LLM_* variables.
func NewConfigFromEnvOverride(apiKey, baseURL, model string) (*Config, error) {
	config := &Config{
		APIKey:        apiKey,
		BaseURL:       baseURL,
		Model:         model,
		Temperature:   getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:     getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:    getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout:   getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
		ContextWindow: getEnvIntOrDefault("LLM_CONTEXT_WINDOW", 0),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

// ResolveContextWindow returns the effective context window in tokens.
// Priority: explicit LLM_CONTEXT_WINDOW > auto-detect from model name > 32K safe default.
func (c *Config) ResolveContextWindow() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	if w := llm.GetContextWindow(c.Model); w > 0 {
		return w
	}
	const defaultContextWindow = 32_000
	log.Printf("[LLM] Unknown model %q, using default context window %d tokens", c.Model, defaultContextWindow)
	return defaultContextWindow
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		log.Printf("[LLM] WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[LLM] WARNING: invalid value for %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}
