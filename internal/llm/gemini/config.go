// Package gemini implements the llm.Gateway contract against Google's
// Gemini API, in the same Config/NewClientFromEnv shape as the other
// provider adapters.
package gemini

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/pocketomega/pocket-omega/internal/llm"
)

// Config holds Gemini API configuration.
type Config struct {
	APIKey        string
	Model         string // default: gemini-2.0-flash
	Temperature   *float32
	MaxTokens     int
	MaxRetries    int
	ContextWindow int
}

// NewConfigFromEnv creates Config from environment variables.
// Expected vars: GEMINI_API_KEY, GEMINI_MODEL, LLM_TEMPERATURE,
// LLM_MAX_TOKENS, LLM_MAX_RETRIES, LLM_CONTEXT_WINDOW.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:        getEnvOrDefault("GEMINI_API_KEY", ""),
		Model:         getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		Temperature:   getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:     getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:    getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
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
		return fmt.Errorf("GEMINI_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	return nil
}

// ResolveContextWindow mirrors the other adapters' resolution order.
func (c *Config) ResolveContextWindow() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	if w := llm.GetContextWindow(c.Model); w > 0 {
		return w
	}
	const defaultContextWindow = 1_000_000
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
