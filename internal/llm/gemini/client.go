package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pocketomega/pocket-omega/internal/llm"
	"google.golang.org/genai"
)

// Client implements llm.Gateway against Google's Gemini API.
type Client struct {
	client *genai.Client
	config *Config
	name   string

	healthy atomic.Bool
}

// GetConfig returns the client's configuration.
func (c *Client) GetConfig() *Config {
	return c.config
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := &Client{
		client: sdk,
		config: config,
		name:   "gemini",
	}
	c.healthy.Store(true)
	return c, nil
}

// NewClientFromEnv creates a client using environment variables.
func NewClientFromEnv(ctx context.Context) (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return NewClient(ctx, config)
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

	system, contents := toGeminiContents(messages)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if c.config.Temperature != nil {
		t := *c.config.Temperature
		cfg.Temperature = &t
	}
	if c.config.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(c.config.MaxTokens)
	}
	if len(tools) > 0 {
		cfg.Tools = toGeminiTools(tools)
	}

	resp, err := c.callWithRetry(ctx, contents, cfg)
	if err != nil {
		c.healthy.Store(false)
		return llm.Response{}, classifyError(c.name, err)
	}
	c.healthy.Store(true)

	if len(resp.Candidates) == 0 {
		return llm.Response{}, llm.NewGatewayError(c.name, llm.ErrCommunication, fmt.Errorf("no candidates returned from LLM"))
	}

	out := llm.Response{}
	var toolCalls []llm.ToolCall
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, llm.ToolCall{
					ID:        part.FunctionCall.ID,
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}
	out.ToolCalls = toolCalls
	if len(toolCalls) > 0 {
		names := make([]string, len(toolCalls))
		for i, tc := range toolCalls {
			names[i] = tc.Name
		}
		log.Printf("[LLM] %s returned %d tool call(s): %s", c.name, len(toolCalls), strings.Join(names, ", "))
	}
	return out, nil
}

// callWithRetry mirrors the other adapters' linear backoff retry loop.
func (c *Client) callWithRetry(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.Models.GenerateContent(ctx, c.config.Model, contents, cfg)
		if lastErr == nil {
			return resp, nil
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] %s retry %d/%d after %v, error: %v", c.name, attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("call failed after %d retries: %w", c.config.MaxRetries, lastErr)
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

func toGeminiContents(messages []llm.Message) (string, []*genai.Content) {
	var system string
	out := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case llm.RoleUser:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case llm.RoleAssistant:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case llm.RoleTool:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return system, out
}

func toGeminiTools(tools []llm.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		var schema *genai.Schema
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &schema)
		}
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// classifyError maps a genai SDK error into a typed llm.GatewayError.
func classifyError(provider string, err error) error {
	var apiErr *genai.APIError
	if errorsAs(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return llm.NewGatewayError(provider, llm.ErrAuthentication, err)
		case 429:
			return llm.NewGatewayError(provider, llm.ErrRateLimit, err)
		case 400:
			return llm.NewGatewayError(provider, llm.ErrInvalidRequest, err)
		}
	}
	if isTimeout(err) {
		return llm.NewGatewayError(provider, llm.ErrTimeout, err)
	}
	return llm.NewGatewayError(provider, llm.ErrCommunication, err)
}
