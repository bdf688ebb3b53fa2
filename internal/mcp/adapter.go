package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// mcpToolTimeout caps a single MCP tool call so that a hung MCP server
// fails quickly and returns control to the calling strategy, which still
// has the remainder of the overall query deadline to produce an answer.
const mcpToolTimeout = 60 * time.Second

// MCPToolAdapter bridges a single mcpsvc tool to the tool.Tool interface,
// making MCP-hosted tools indistinguishable from any other tool to the
// inference strategies.
//
// Naming convention: mcp_<serverID>__<toolName> (double underscore
// separator). The double underscore is unambiguous — it cannot appear
// within a valid server or tool name — and prevents collisions when
// either component contains single underscores.
//
// Example: server "csv-tool", tool "read_csv" → "mcp_csv-tool__read_csv"
type MCPToolAdapter struct {
	serverID string
	info     mcpsvc.Tool
	// client is the shared persistent connection. For per_call lifecycle it
	// is nil — Execute creates a fresh Client per invocation from spec.
	client    *mcpsvc.Client
	spec      mcpsvc.ServerSpec
	lifecycle string // "persistent" (default) | "per_call"
}

// NewMCPToolAdapter creates an adapter for a single MCP tool. spec is
// stored so Execute can rebuild a transient connection for per_call
// lifecycle servers. For persistent servers client must be non-nil.
func NewMCPToolAdapter(serverID string, info mcpsvc.Tool, client *mcpsvc.Client, spec mcpsvc.ServerSpec) *MCPToolAdapter {
	lc := spec.Lifecycle
	if lc == "" {
		lc = "persistent"
	}
	return &MCPToolAdapter{
		serverID:  serverID,
		info:      info,
		client:    client,
		spec:      spec,
		lifecycle: lc,
	}
}

// Name returns the fully-qualified tool name: mcp_<server>__<tool>.
func (a *MCPToolAdapter) Name() string {
	return fmt.Sprintf("mcp_%s__%s", a.serverID, a.info.Name)
}

// Description returns the tool description advertised by the MCP server.
func (a *MCPToolAdapter) Description() string {
	return a.info.Description
}

// InputSchema returns the JSON Schema advertised by the MCP server.
func (a *MCPToolAdapter) InputSchema() json.RawMessage {
	if len(a.info.InputSchema) == 0 {
		return tool.BuildSchema()
	}
	return a.info.InputSchema
}

// Execute deserialises the JSON args and delegates to the MCP server.
//
// For persistent lifecycle: reuses the shared client connection.
// For per_call lifecycle: creates a fresh Client, runs the tool, then
// closes the process, guaranteeing no residual processes are left running.
//
// Infrastructure errors and MCP tool-level errors are both returned as a
// ToolResult.Error (nil Go error) so the calling strategy can react
// gracefully instead of unwinding on an exception.
func (a *MCPToolAdapter) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var params map[string]any
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &params); err != nil {
			return tool.ToolResult{
				Error: fmt.Sprintf("mcp adapter: parse args for %q: %v", a.Name(), err),
			}, nil
		}
	}

	if a.lifecycle == "per_call" {
		return a.executePerCall(ctx, params)
	}
	return a.executePersistent(ctx, params)
}

// executePersistent delegates to the long-lived shared client. A per-call
// timeout (mcpToolTimeout) is applied so a hung MCP server does not
// consume the entire query budget.
func (a *MCPToolAdapter) executePersistent(ctx context.Context, params map[string]any) (tool.ToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, mcpToolTimeout)
	defer cancel()
	result := a.client.CallTool(callCtx, a.info.Name, a.info.InputSchema, params)
	if !result.Success {
		return tool.ToolResult{Error: result.Message}, nil
	}
	return tool.ToolResult{Output: result.Content}, nil
}

// executePerCall creates an ephemeral Client, connects, calls the tool,
// then closes the connection — the child process is terminated by Close.
// mcpToolTimeout bounds the full connect+call sequence.
func (a *MCPToolAdapter) executePerCall(ctx context.Context, params map[string]any) (tool.ToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, mcpToolTimeout)
	defer cancel()
	c := mcpsvc.NewClient(a.spec)
	if err := c.Connect(callCtx); err != nil {
		return tool.ToolResult{
			Error: fmt.Sprintf("mcp per_call: connect to %q: %v", a.spec.ID, err),
		}, nil
	}
	defer c.Close() //nolint:errcheck // best-effort cleanup

	result := c.CallTool(callCtx, a.info.Name, a.info.InputSchema, params)
	if !result.Success {
		return tool.ToolResult{Error: result.Message}, nil
	}
	return tool.ToolResult{Output: result.Content}, nil
}

// Init satisfies the tool.Tool interface. Connection lifecycle is managed
// by the Manager; individual adapters need no additional initialisation.
func (a *MCPToolAdapter) Init(_ context.Context) error {
	return nil
}

// Close satisfies the tool.Tool interface. Connection lifecycle is managed
// by the Manager; adapters do not close the shared client.
func (a *MCPToolAdapter) Close() error {
	return nil
}
