// Package llm defines the capability-typed gateway contract that every
// provider adapter implements, plus the message and tool-call types that
// flow through the inference strategies and the tool matcher.
package llm

import (
	"context"
	"encoding/json"
)

// Message represents a single chat message exchanged with an LLM.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system", "tool"
	Content string `json:"content"` // message text

	// ToolCallID correlates a "tool" role message with the ToolCall that
	// produced it, for providers that require explicit correlation.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolDefinition describes a callable tool offered to the model when
// GenerateWithTools is used. Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a single structured tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response is the result of a Generate or GenerateWithTools call.
// Exactly one of Text or ToolCalls is meaningful for a given call: plain
// Generate calls only ever populate Text; GenerateWithTools may return
// either Text (the model chose to answer directly) or ToolCalls.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Capabilities describes what a provider/model combination supports.
type Capabilities struct {
	SupportsTools     bool
	SupportsStreaming bool
	ContextWindow     int // tokens
}

// Gateway is the single abstraction every LLM provider adapter implements.
// Implementations never panic and never return a bare Go error across this
// boundary for provider-level failures — those are carried in the returned
// *GatewayError via errors.As, so strategies can branch on ErrorKind
// instead of parsing error strings.
type Gateway interface {
	// Generate sends messages and returns the model's free-text response.
	Generate(ctx context.Context, messages []Message) (Response, error)

	// GenerateWithTools sends messages plus tool schemas and returns either
	// a text response or a set of structured tool calls.
	GenerateWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error)

	// Capabilities reports what this provider/model supports.
	Capabilities() Capabilities

	// IsHealthy reports whether the provider is currently reachable.
	// Implementations may use a cached result of the last call's outcome
	// rather than issuing a fresh health-check request.
	IsHealthy() bool

	// Name returns the provider identifier ("openai", "groq", "claude", "gemini").
	Name() string
}
