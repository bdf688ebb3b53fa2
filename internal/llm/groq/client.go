// Package groq implements the llm.Gateway contract against Groq's
// OpenAI-compatible chat-completions endpoint. Groq's API shape matches
// OpenAI's exactly, so this package is a thin re-pointing of the openai
// package's Client rather than a separate HTTP implementation — the same
// approach the teacher documents for "any OpenAI-compatible endpoint".
package groq

import (
	"fmt"
	"os"

	"github.com/pocketomega/pocket-omega/internal/llm/openai"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// NewClientFromEnv creates a Groq-backed client using GROQ_API_KEY and
// GROQ_MODEL (falling back to the shared LLM_* variables for tuning
// knobs shared with the OpenAI adapter).
func NewClientFromEnv() (*openai.Client, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required. Set it in .env or environment")
	}
	model := os.Getenv("GROQ_MODEL")
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	baseURL := os.Getenv("GROQ_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	cfg, err := openai.NewConfigFromEnvOverride(apiKey, baseURL, model)
	if err != nil {
		return nil, err
	}
	return openai.NewClientNamed("groq", cfg)
}
