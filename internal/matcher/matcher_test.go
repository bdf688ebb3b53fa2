package matcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/rules"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// fakeMCPTool is a minimal tool.Tool stand-in carrying an
// mcp_<server>__<tool>-shaped name, for exercising enhance's server-ID
// extraction without pulling in internal/mcp.
type fakeMCPTool struct{ name string }

func (f fakeMCPTool) Name() string                     { return f.name }
func (f fakeMCPTool) Description() string              { return "" }
func (f fakeMCPTool) InputSchema() json.RawMessage     { return json.RawMessage("{}") }
func (f fakeMCPTool) Init(context.Context) error       { return nil }
func (f fakeMCPTool) Close() error                     { return nil }
func (f fakeMCPTool) Execute(context.Context, json.RawMessage) (tool.ToolResult, error) {
	return tool.ToolResult{}, nil
}

func TestServerIDFromToolName(t *testing.T) {
	cases := map[string]string{
		"mcp_weather-api__get_forecast": "weather-api",
		"mcp_my_server__get_things":     "my_server",
		"not-an-mcp-tool":               "",
	}
	for name, want := range cases {
		if got := serverIDFromToolName(name); got != want {
			t.Errorf("serverIDFromToolName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestEnhance_KeysRuleEngineByServerIDNotToolName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	content := `[{"name":"weather-api","items":[{"rules":{"context_add":"prefer metric units"}}]}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules.json: %v", err)
	}
	engine, err := rules.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	m := NewMatcher(nil, engine)
	candidates := []tool.Tool{fakeMCPTool{name: "mcp_weather-api__get_forecast"}}
	got := m.enhance("what's the weather", candidates, nil)
	if !strings.Contains(got, "prefer metric units") {
		t.Errorf("enhance() = %q, want rule content appended via the plain server ID", got)
	}
}

func TestSubstitute_ReplacesPlaceholder(t *testing.T) {
	params := map[string]any{"city": "{{RESULT_1}}", "count": 3}
	got := Substitute(params, []string{"Paris"})
	if got["city"] != "Paris" {
		t.Errorf("city = %#v, want Paris", got["city"])
	}
	if got["count"] != 3 {
		t.Errorf("count = %#v, want unchanged 3", got["count"])
	}
}

func TestSubstitute_OutOfRangeLeftUntouched(t *testing.T) {
	params := map[string]any{"city": "{{RESULT_5}}"}
	got := Substitute(params, []string{"Paris"})
	if got["city"] != "{{RESULT_5}}" {
		t.Errorf("city = %#v, want placeholder left intact", got["city"])
	}
}

func TestSubstitute_EmbeddedInLargerString(t *testing.T) {
	params := map[string]any{"query": "weather in {{RESULT_1}} today"}
	got := Substitute(params, []string{"Tokyo"})
	if got["query"] != "weather in Tokyo today" {
		t.Errorf("query = %#v, want substituted in place", got["query"])
	}
}
