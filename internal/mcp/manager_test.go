package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/domain"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

func newTestManager(t *testing.T, fleetPath string) *Manager {
	t.Helper()
	reg, err := domain.NewRegistry(filepath.Join(t.TempDir(), "domains.json"), nil)
	if err != nil {
		t.Fatalf("domain.NewRegistry: %v", err)
	}
	m := matcher.NewMatcher(nil, nil)
	return NewManager(fleetPath, reg, m, nil)
}

func TestNewManager_CreatesEmptyState(t *testing.T) {
	m := newTestManager(t, "fleet.json")
	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if len(m.ConnectedServers()) != 0 {
		t.Errorf("expected no connected servers, got %d", len(m.ConnectedServers()))
	}
}

func TestConnectAll_MissingConfigIsNotAnError(t *testing.T) {
	// A missing fleet file means zero configured servers, not a fatal error —
	// the system must be usable with no MCP servers at all.
	m := newTestManager(t, filepath.Join(t.TempDir(), "nonexistent.json"))
	n, errs := m.ConnectAll(context.Background())
	if n != 0 {
		t.Errorf("expected 0 connected, got %d", n)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors for a missing fleet file, got %v", errs)
	}
}

func TestConnectAll_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")
	if err := os.WriteFile(path, []byte(`{not valid json`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := newTestManager(t, path)
	n, errs := m.ConnectAll(context.Background())
	if n != 0 {
		t.Errorf("expected 0 connected, got %d", n)
	}
	if len(errs) == 0 {
		t.Error("expected an error for invalid fleet JSON")
	}
}

func TestConnectAll_UnreachableServerIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")
	content := `{"mcpServers":{"ghost":{"transport":"stdio","command":"this-command-does-not-exist-xyz","enabled":true}}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := newTestManager(t, path)
	n, errs := m.ConnectAll(context.Background())
	if n != 0 {
		t.Errorf("expected 0 connected for an unreachable command, got %d", n)
	}
	if len(errs) != 1 {
		t.Errorf("expected exactly 1 error, got %d: %v", len(errs), errs)
	}
}

func TestCloseAll_Idempotent(t *testing.T) {
	m := newTestManager(t, "fleet.json")
	m.CloseAll()
	m.CloseAll()
	m.CloseAll()
}

func TestRegisterTools_EmptyManager(t *testing.T) {
	m := newTestManager(t, "fleet.json")
	registry := tool.NewRegistry()
	if err := m.RegisterTools(context.Background(), registry); err != nil {
		t.Errorf("RegisterTools on empty manager: %v", err)
	}
	if len(registry.List()) != 0 {
		t.Errorf("expected no tools, got %d", len(registry.List()))
	}
}

func TestReload_MissingConfigIsAnError(t *testing.T) {
	// Unlike ConnectAll at startup, Reload is an explicit operator action —
	// a missing file here means a misconfigured reload, so it is reported.
	m := newTestManager(t, filepath.Join(t.TempDir(), "nonexistent.json"))
	registry := tool.NewRegistry()
	_, err := m.Reload(context.Background(), registry)
	if err == nil {
		t.Error("expected error for missing fleet file")
	}
}

func TestReload_EmptyConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")
	if err := os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := newTestManager(t, path)
	registry := tool.NewRegistry()
	summary, err := m.Reload(context.Background(), registry)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !strings.Contains(summary, "+0") {
		t.Errorf("expected no additions in summary, got: %s", summary)
	}
}

// dummyTool is a minimal tool.Tool implementation for registry tests.
type dummyTool struct{ name string }

func (d *dummyTool) Name() string        { return d.name }
func (d *dummyTool) Description() string { return "dummy" }
func (d *dummyTool) InputSchema() json.RawMessage {
	return json.RawMessage("{}")
}
func (d *dummyTool) Execute(_ context.Context, _ json.RawMessage) (tool.ToolResult, error) {
	return tool.ToolResult{Output: "ok"}, nil
}
func (d *dummyTool) Init(_ context.Context) error { return nil }
func (d *dummyTool) Close() error                 { return nil }

func TestReload_RemoveServer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")

	m := newTestManager(t, path)
	m.mu.Lock()
	m.specs["old-server"] = mcpsvc.ServerSpec{ID: "old-server"}
	m.serverTools["old-server"] = []string{"mcp_old-server__do_thing"}
	m.mu.Unlock()

	registry := tool.NewRegistry()
	registry.Register(&dummyTool{name: "mcp_old-server__do_thing"})

	if err := os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o600); err != nil {
		t.Fatalf("write fleet.json: %v", err)
	}

	summary, err := m.Reload(context.Background(), registry)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !strings.Contains(summary, "-1") {
		t.Errorf("expected -1 in summary, got: %s", summary)
	}
	if _, ok := registry.Get("mcp_old-server__do_thing"); ok {
		t.Error("expected tool to be unregistered after server removal")
	}
}

func TestExecuteTool_UnknownToolReportsNotFound(t *testing.T) {
	m := newTestManager(t, "fleet.json")
	registry := tool.NewRegistry()
	result := m.ExecuteTool(context.Background(), registry, "mcp_nope__nope", nil)
	if result.Success {
		t.Error("expected failure for an unregistered tool")
	}
}

func TestAnalyzeQuery_NoDomainsMeansDirectAnswer(t *testing.T) {
	m := newTestManager(t, "fleet.json")
	got := m.AnalyzeQuery(context.Background(), "hello there")
	if got.Kind != DirectAnswer {
		t.Errorf("Kind = %v, want DirectAnswer", got.Kind)
	}
}

func TestDisableServer_UnregistersToolsAndDropsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")
	content := `{"mcpServers":{"old-server":{"transport":"stdio","command":"x","enabled":true}}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fleet.json: %v", err)
	}

	m := newTestManager(t, path)
	m.mu.Lock()
	m.specs["old-server"] = mcpsvc.ServerSpec{ID: "old-server", Enabled: true}
	m.serverTools["old-server"] = []string{"mcp_old-server__do_thing"}
	m.mu.Unlock()

	registry := tool.NewRegistry()
	registry.Register(&dummyTool{name: "mcp_old-server__do_thing"})

	if err := m.DisableServer(context.Background(), registry, "old-server"); err != nil {
		t.Fatalf("DisableServer: %v", err)
	}

	if _, ok := registry.Get("mcp_old-server__do_thing"); ok {
		t.Error("expected tool to be unregistered immediately after disabling its server")
	}
	m.mu.Lock()
	_, stillTracked := m.specs["old-server"]
	m.mu.Unlock()
	if stillTracked {
		t.Error("expected server spec to be dropped from live state after disabling")
	}
}

func TestEnableServer_UnknownServerErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")
	if err := os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o600); err != nil {
		t.Fatalf("write fleet.json: %v", err)
	}

	m := newTestManager(t, path)
	registry := tool.NewRegistry()
	if err := m.EnableServer(context.Background(), registry, "nope"); err == nil {
		t.Error("expected error enabling an unknown server")
	}
}

func TestRefresh_NoStaleClientsReconnectsNone(t *testing.T) {
	m := newTestManager(t, "fleet.json")
	reconnected, errs := m.Refresh(context.Background())
	if reconnected != 0 {
		t.Errorf("reconnected = %d, want 0", reconnected)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestServerIDFromToolName(t *testing.T) {
	cases := map[string]string{
		"mcp_csv-tool__read_csv":    "csv-tool",
		"mcp_my_server__get_things": "my_server",
		"not-an-mcp-tool":           "",
	}
	for name, want := range cases {
		if got := serverIDFromToolName(name); got != want {
			t.Errorf("serverIDFromToolName(%q) = %q, want %q", name, got, want)
		}
	}
}
