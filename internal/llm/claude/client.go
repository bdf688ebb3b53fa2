package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pocketomega/pocket-omega/internal/llm"
)

// Client implements llm.Gateway against Anthropic's Messages API.
type Client struct {
	client *anthropic.Client
	config *Config
	name   string

	healthy atomic.Bool
}

// GetConfig returns the client's configuration.
func (c *Client) GetConfig() *Config {
	return c.config
}

// NewClient creates a new Claude client.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sdk := anthropic.NewClient(option.WithAPIKey(config.APIKey))
	c := &Client{
		client: &sdk,
		config: config,
		name:   "claude",
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

	system, msgs := toClaudeMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.config.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*c.config.Temperature))
	}
	if len(tools) > 0 {
		params.Tools = toClaudeTools(tools)
	}

	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		c.healthy.Store(false)
		return llm.Response{}, classifyError(c.name, err)
	}
	c.healthy.Store(true)

	out := llm.Response{}
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += variant.Text
		case anthropic.ToolUseBlock:
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.Input),
			})
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

// callWithRetry mirrors the openai adapter's linear backoff retry loop.
func (c *Client) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var resp *anthropic.Message
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.Messages.New(ctx, params)
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

// toClaudeMessages splits out the system prompt (Claude treats it as a
// top-level request field, not a message with a role) and converts the rest.
func toClaudeMessages(messages []llm.Message) (string, []anthropic.MessageParam) {
	var system string
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case llm.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))
		}
	}
	return system, out
}

func toClaudeTools(tools []llm.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &schema)
		}
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		}
	}
	return out
}

// classifyError maps an Anthropic SDK error into a typed llm.GatewayError.
func classifyError(provider string, err error) error {
	var apiErr *anthropic.Error
	if errorsAs(err, &apiErr) {
		switch apiErr.StatusCode {
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
