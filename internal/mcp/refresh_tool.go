package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/tool"
)

// RefreshTool implements tool.Tool and exposes the "mcp_refresh" built-in
// command. When invoked, it attempts reconnection of every persistent
// server whose client is not connected (its health tracker crossed the
// consecutive-failure limit), without touching servers that are still
// connected.
//
// The tool takes no input parameters and returns a human-readable summary.
type RefreshTool struct {
	manager *Manager
}

// NewRefreshTool creates a RefreshTool wired to the given manager.
func NewRefreshTool(manager *Manager) *RefreshTool {
	return &RefreshTool{manager: manager}
}

func (t *RefreshTool) Name() string { return "mcp_refresh" }

func (t *RefreshTool) Description() string {
	return "Attempts reconnection of every MCP server currently disconnected or unhealthy. " +
		"Leaves already-healthy servers untouched. Returns a summary of reconnect attempts."
}

// InputSchema returns an empty schema — mcp_refresh accepts no arguments.
func (t *RefreshTool) InputSchema() json.RawMessage {
	return tool.BuildSchema()
}

// Execute triggers the reconnect sweep and returns a change summary.
func (t *RefreshTool) Execute(ctx context.Context, _ json.RawMessage) (tool.ToolResult, error) {
	reconnected, errs := t.manager.Refresh(ctx)
	summary := fmt.Sprintf("MCP refresh: %d reconnected", reconnected)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		summary += "\n" + strings.Join(msgs, "\n")
	}
	return tool.ToolResult{Output: summary}, nil
}

// Init is a no-op; RefreshTool has no additional initialisation requirements.
func (t *RefreshTool) Init(_ context.Context) error { return nil }

// Close is a no-op; lifecycle is managed by Manager.
func (t *RefreshTool) Close() error { return nil }
