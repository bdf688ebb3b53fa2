package mcpsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sdk_client "github.com/mark3labs/mcp-go/client"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
)

// defaultCallTimeout bounds a single tool invocation when the caller does
// not already carry a tighter deadline.
const defaultCallTimeout = 60 * time.Second

// ServerSpec describes a single MCP server's identity and how to reach it.
// It is the unit persisted to the fleet configuration file and produced by
// the onboarding wizard.
type ServerSpec struct {
	ID          string            `json:"-"`
	Description string            `json:"description,omitempty"`
	Transport   string            `json:"transport"`         // "stdio" | "sse"
	Command     string            `json:"command,omitempty"` // stdio: executable
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	URL         string            `json:"url,omitempty"` // sse: base URL
	Priority    int               `json:"priority"`       // 1 = high .. 5 = low
	Enabled     bool              `json:"enabled"`
	Domain      string            `json:"domain,omitempty"`
	Lifecycle   string            `json:"lifecycle,omitempty"` // "persistent" (default) | "per_call"
}

// envSlice converts the Env map into the "KEY=VALUE" slice the mcp-go stdio
// transport expects.
func (s ServerSpec) envSlice() []string {
	if len(s.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		out = append(out, k+"="+v)
	}
	return out
}

// Tool captures the metadata of a single tool exposed by an MCP server.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ToolExecutionResult is the outcome of a single tool invocation. Success
// implies a nil error kind; failure always carries a non-empty message.
type ToolExecutionResult struct {
	Success bool
	Tool    string
	Content string
	Error   ErrorKind
	Message string
}

// Client supervises a single MCP server: it owns the subprocess/SSE
// connection, the MCP handshake, and this server's health tracker. It is
// safe for concurrent use by multiple goroutines.
type Client struct {
	spec   ServerSpec
	health *healthTracker

	mu    sync.RWMutex
	inner sdk_client.MCPClient
}

// NewClient creates an unconnected Client for the given spec. Call Connect
// to establish the transport and complete the MCP handshake.
func NewClient(spec ServerSpec) *Client {
	return &Client{spec: spec, health: newHealthTracker()}
}

// Spec returns the server's configuration.
func (c *Client) Spec() ServerSpec {
	return c.spec
}

// Connect performs the pre-flight command probe (for stdio transports),
// establishes the transport connection, and completes the MCP initialize
// handshake. It must be called before ListTools or CallTool.
func (c *Client) Connect(ctx context.Context) error {
	var inner sdk_client.MCPClient

	switch c.spec.Transport {
	case "stdio", "":
		if err := ProbeCommand(c.spec.Command); err != nil {
			return NewServerError(c.spec.ID, ErrCommandNotFound, err)
		}
		cli, err := sdk_client.NewStdioMCPClient(c.spec.Command, c.spec.envSlice(), c.spec.Args...)
		if err != nil {
			return NewServerError(c.spec.ID, ErrTransport, err)
		}
		inner = cli

	case "sse":
		cli, err := sdk_client.NewSSEMCPClient(c.spec.URL)
		if err != nil {
			return NewServerError(c.spec.ID, ErrTransport, err)
		}
		if err := cli.Start(ctx); err != nil {
			return NewServerError(c.spec.ID, ErrTransport, err)
		}
		inner = cli

	default:
		return NewServerError(c.spec.ID, ErrTransport, fmt.Errorf("unknown transport %q", c.spec.Transport))
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := inner.Initialize(handshakeCtx, sdk_mcp.InitializeRequest{
		Params: sdk_mcp.InitializeParams{
			ProtocolVersion: sdk_mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdk_mcp.Implementation{
				Name:    "agentcore",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		if handshakeCtx.Err() != nil {
			return NewServerError(c.spec.ID, ErrHandshakeTimeout, err)
		}
		return NewServerError(c.spec.ID, ErrTransport, err)
	}

	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	c.health.setConnected(true)
	return nil
}

// Connected reports whether the client currently holds a live connection.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner != nil
}

// Healthy reports this server's current health verdict.
func (c *Client) Healthy() bool {
	return c.health.Healthy()
}

// LastHeartbeat returns the time of the last successful request.
func (c *Client) LastHeartbeat() time.Time {
	return c.health.LastHeartbeat()
}

// ListTools returns metadata for every tool exposed by this server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()

	if inner == nil {
		return nil, NewServerError(c.spec.ID, ErrTransport, fmt.Errorf("not connected"))
	}

	result, err := inner.ListTools(ctx, sdk_mcp.ListToolsRequest{})
	if err != nil {
		if becameUnhealthy := c.health.recordFailure(); becameUnhealthy {
			c.mu.Lock()
			c.inner = nil
			c.mu.Unlock()
		}
		return nil, NewServerError(c.spec.ID, ErrTransport, err)
	}
	c.health.recordSuccess()

	if len(result.Tools) == 0 {
		return nil, NewServerError(c.spec.ID, ErrNoTools, fmt.Errorf("server advertised no tools"))
	}

	tools := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

// CallTool validates args against the tool's JSON Schema — type-coercing
// declared properties and filling in defaults for ones missing from
// args — then invokes the named tool with per-call timeout and
// exponential backoff retry (base 500ms, factor 2, up to 3 attempts). It
// never returns a low-level transport error to the caller — failures are
// reported through ToolExecutionResult.Error/Message instead. schema may
// be nil/empty, in which case args pass through unmodified.
func (c *Client) CallTool(ctx context.Context, name string, schema json.RawMessage, args map[string]any) ToolExecutionResult {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()

	if inner == nil {
		return ToolExecutionResult{Tool: name, Error: ErrTransport, Message: fmt.Sprintf("server %q not connected", c.spec.ID)}
	}

	if len(schema) > 0 {
		args = CoerceParams(schema, args)
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	req := sdk_mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var result *sdk_mcp.CallToolResult
	err := withRetry(callCtx, fmt.Sprintf("call %s.%s", c.spec.ID, name), func() error {
		r, callErr := inner.CallTool(callCtx, req)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		if becameUnhealthy := c.health.recordFailure(); becameUnhealthy {
			c.mu.Lock()
			c.inner = nil
			c.mu.Unlock()
		}
		return ToolExecutionResult{Tool: name, Error: ErrTransport, Message: err.Error()}
	}
	c.health.recordSuccess()

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdk_mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return ToolExecutionResult{Tool: name, Error: ErrUnknown, Message: text}
	}
	return ToolExecutionResult{Success: true, Tool: name, Content: text}
}

// Close terminates the connection and releases resources. Safe to call
// multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()
	c.health.setConnected(false)

	if inner == nil {
		return nil
	}
	return inner.Close()
}
