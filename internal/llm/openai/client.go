package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pocketomega/pocket-omega/internal/llm"
	openailib "github.com/sashabaranov/go-openai"
)

// Client implements llm.Gateway using the OpenAI-compatible protocol.
// Works with any endpoint that supports the OpenAI chat completions API
// (litellm, Ollama, Azure, vLLM, Groq — see the groq package, which reuses
// this client pointed at a different BaseURL).
type Client struct {
	client *openailib.Client
	config *Config
	name   string // "openai" unless overridden (groq reuses this client)

	healthy atomic.Bool
}

// GetConfig returns the client's configuration.
func (c *Client) GetConfig() *Config {
	return c.config
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(config *Config) (*Client, error) {
	return NewClientNamed("openai", config)
}

// NewClientNamed creates a client reporting a custom provider name. Used by
// the groq package to present itself as "groq" while reusing this
// implementation.
func NewClientNamed(name string, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	// Prevent indefinite hangs when the API is unresponsive.
	httpTimeout := time.Duration(config.HTTPTimeout) * time.Second
	clientConfig.HTTPClient = &http.Client{Timeout: httpTimeout}

	c := &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		config: config,
		name:   name,
	}
	c.healthy.Store(true)
	return c, nil
}

// NewClientFromEnv creates a client using environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return NewClient(config)
}

// Generate implements llm.Gateway.
func (c *Client) Generate(ctx context.Context, messages []llm.Message) (llm.Response, error) {
	return c.call(ctx, messages, nil)
}

// GenerateWithTools implements llm.Gateway.
func (c *Client) GenerateWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	return c.call(ctx, messages, tools)
}

func (c *Client) call(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	if len(messages) == 0 {
		return llm.Response{}, llm.NewGatewayError(c.name, llm.ErrInvalidRequest, fmt.Errorf("no messages to send"))
	}

	req := openailib.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: toOpenAIMessages(messages),
	}
	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
	}

	resp, err := c.callWithRetry(ctx, req)
	if err != nil {
		c.healthy.Store(false)
		return llm.Response{}, classifyError(c.name, err)
	}
	c.healthy.Store(true)

	if len(resp.Choices) == 0 {
		return llm.Response{}, llm.NewGatewayError(c.name, llm.ErrCommunication, fmt.Errorf("no choices returned from LLM"))
	}
	choice := resp.Choices[0].Message

	out := llm.Response{Text: choice.Content}
	if len(choice.ToolCalls) > 0 {
		out.ToolCalls = make([]llm.ToolCall, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			out.ToolCalls[i] = llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			}
		}
		names := make([]string, len(out.ToolCalls))
		for i, tc := range out.ToolCalls {
			names[i] = tc.Name
		}
		log.Printf("[LLM] %s returned %d tool call(s): %s", c.name, len(out.ToolCalls), strings.Join(names, ", "))
	}
	return out, nil
}

// callWithRetry executes the request with exponential-free, linear retry on
// any failure, without classifying the error (base: 1s * attempt), matching the teacher's own retry
// loop for chat completions.
func (c *Client) callWithRetry(ctx context.Context, req openailib.ChatCompletionRequest) (openailib.ChatCompletionResponse, error) {
	var resp openailib.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			return resp, nil
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] %s retry %d/%d after %v, error: %v", c.name, attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return openailib.ChatCompletionResponse{}, ctx.Err()
			}
		}
	}
	return openailib.ChatCompletionResponse{}, fmt.Errorf("call failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

// Capabilities implements llm.Gateway.
func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		SupportsTools:     llm.DetectToolCallingCapability(c.config.Model),
		SupportsStreaming: true,
		ContextWindow:     c.config.ResolveContextWindow(),
	}
}

// IsHealthy implements llm.Gateway.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// Name implements llm.Gateway.
func (c *Client) Name() string {
	return c.name
}

func toOpenAIMessages(messages []llm.Message) []openailib.ChatCompletionMessage {
	out := make([]openailib.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openailib.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if msg.Role == llm.RoleTool && msg.ToolCallID != "" {
			out[i].ToolCallID = msg.ToolCallID
		}
	}
	return out
}

func toOpenAITools(tools []llm.ToolDefinition) []openailib.Tool {
	out := make([]openailib.Tool, len(tools))
	for i, t := range tools {
		out[i] = openailib.Tool{
			Type: openailib.ToolTypeFunction,
			Function: &openailib.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// classifyError maps a go-openai error into a typed llm.GatewayError.
// go-openai surfaces HTTP status via *openailib.APIError; context
// cancellation/deadlines surface as context.DeadlineExceeded/Canceled.
func classifyError(provider string, err error) error {
	var apiErr *openailib.APIError
	if errorsAs(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return llm.NewGatewayError(provider, llm.ErrAuthentication, err)
		case http.StatusTooManyRequests:
			return llm.NewGatewayError(provider, llm.ErrRateLimit, err)
		case http.StatusBadRequest:
			return llm.NewGatewayError(provider, llm.ErrInvalidRequest, err)
		}
	}
	if isTimeout(err) {
		return llm.NewGatewayError(provider, llm.ErrTimeout, err)
	}
	return llm.NewGatewayError(provider, llm.ErrCommunication, err)
}
