// Package claude implements the llm.Gateway contract against Anthropic's
// Messages API, using the same Config/NewClientFromEnv/Validate shape the
// teacher uses for its OpenAI adapter.
package claude

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/pocketomega/pocket-omega/internal/llm"
)

// Config holds Claude API configuration.
type Config struct {
	APIKey        string
	Model         string // default: claude-sonnet-4-5
	MaxTokens     int    // required by the Messages API; default 4096
	Temperature   *float32
	MaxRetries    int
	ContextWindow int
}

// NewConfigFromEnv creates Config from environment variables.
// Expected vars: ANTHROPIC_API_KEY, CLAUDE_MODEL, LLM_TEMPERATURE,
// LLM_MAX_TOKENS, LLM_MAX_RETRIES, LLM_CONTEXT_WINDOW.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:        getEnvOrDefault("ANTHROPIC_API_KEY", ""),
		Model:         getEnvOrDefault("CLAUDE_MODEL", "claude-sonnet-4-5"),
		MaxTokens:     getEnvIntOrDefault("LLM_MAX_TOKENS", 4096),
		Temperature:   getEnvFloat32Ptr("LLM_TEMPERATURE"),
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
		return fmt.Errorf("ANTHROPIC_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("CLAUDE_MODEL cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive for the Claude adapter, got %d", c.MaxTokens)
	}
	return nil
}

// ResolveContextWindow mirrors the OpenAI adapter's resolution order.
func (c *Config) ResolveContextWindow() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	if w := llm.GetContextWindow(c.Model); w > 0 {
		return w
	}
	const defaultContextWindow = 200_000
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
