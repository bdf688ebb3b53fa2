package inference

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/domain"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcp"
	"github.com/pocketomega/pocket-omega/internal/session"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// fakeGateway implements llm.Gateway with a queue of canned text replies,
// consumed in order — one per Generate/GenerateWithTools call. Replies run
// out → the zero Response is returned forever.
type fakeGateway struct {
	replies []string
	calls   []string // the user-message content of each call, in order
	i       int
}

func newFakeGateway(replies ...string) *fakeGateway {
	return &fakeGateway{replies: replies}
}

func (g *fakeGateway) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	if len(messages) > 0 {
		g.calls = append(g.calls, messages[len(messages)-1].Content)
	}
	if g.i >= len(g.replies) {
		return llm.Response{}, nil
	}
	text := g.replies[g.i]
	g.i++
	return llm.Response{Text: text}, nil
}

func (g *fakeGateway) GenerateWithTools(ctx context.Context, messages []llm.Message, _ []llm.ToolDefinition) (llm.Response, error) {
	return g.Generate(ctx, messages)
}

func (g *fakeGateway) Capabilities() llm.Capabilities { return llm.Capabilities{} }
func (g *fakeGateway) IsHealthy() bool                { return true }
func (g *fakeGateway) Name() string                   { return "fake" }

// newTestManager builds a Manager with an empty fleet, a fresh domain
// registry, and gateway wired through to the matcher so strategy tests can
// exercise real classify/select/execute paths against stub tools.
func newTestManager(t *testing.T, gateway llm.Gateway) *mcp.Manager {
	t.Helper()
	reg, err := domain.NewRegistry(filepath.Join(t.TempDir(), "domains.json"), gateway)
	if err != nil {
		t.Fatalf("domain.NewRegistry: %v", err)
	}
	m := matcher.NewMatcher(gateway, nil)
	return mcp.NewManager(filepath.Join(t.TempDir(), "fleet.json"), reg, m, gateway)
}

// stubTool is a minimal tool.Tool for strategy tests: it returns a fixed
// output (or a failure) regardless of its arguments.
type stubTool struct {
	name   string
	output string
	fail   bool
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool " + s.name }
func (s *stubTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (s *stubTool) Execute(_ context.Context, _ json.RawMessage) (tool.ToolResult, error) {
	if s.fail {
		return tool.ToolResult{Error: "stub failure"}, nil
	}
	return tool.ToolResult{Output: s.output}, nil
}
func (s *stubTool) Init(_ context.Context) error { return nil }
func (s *stubTool) Close() error                 { return nil }

// emptyRegistry returns a fresh tool.Registry with nothing registered.
func emptyRegistry() *tool.Registry {
	return tool.NewRegistry()
}

// registryWith returns a tool.Registry pre-populated with the given tools.
func registryWith(tools ...tool.Tool) *tool.Registry {
	r := tool.NewRegistry()
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// drainEvents collects every event an Observer emits until its channel is
// closed, delivering the full slice on the returned channel. Call obs.Close()
// once the strategy under test returns, then receive from the result.
func drainEvents(obs *Observer) <-chan []Event {
	out := make(chan []Event, 1)
	go func() {
		var all []Event
		for e := range obs.Events() {
			all = append(all, e)
		}
		out <- all
	}()
	return out
}

func TestReactIterationCeiling_ClampsToHardCeiling(t *testing.T) {
	if got := reactIterationCeiling(100); got != reactHardCeiling {
		t.Errorf("reactIterationCeiling(100) = %d, want %d", got, reactHardCeiling)
	}
	if got := reactIterationCeiling(0); got != defaultReActMaxIterations {
		t.Errorf("reactIterationCeiling(0) = %d, want default %d", got, defaultReActMaxIterations)
	}
	if got := reactIterationCeiling(3); got != 3 {
		t.Errorf("reactIterationCeiling(3) = %d, want 3 (below ceiling passes through)", got)
	}
}

func TestReflectionRoundCeiling_DefaultsWhenUnset(t *testing.T) {
	if got := reflectionRoundCeiling(0); got != defaultReflectionMaxRounds {
		t.Errorf("reflectionRoundCeiling(0) = %d, want default %d", got, defaultReflectionMaxRounds)
	}
	if got := reflectionRoundCeiling(10); got != 10 {
		t.Errorf("reflectionRoundCeiling(10) = %d, want 10 (no hard cap)", got)
	}
}

func TestHistoryPrefix_EmptyWithNoHistory(t *testing.T) {
	if got := historyPrefix(Options{}); got != "" {
		t.Errorf("historyPrefix(empty Options) = %q, want empty", got)
	}
}

func TestHistoryPrefix_IncludesPriorTurns(t *testing.T) {
	opts := Options{History: []session.Turn{{UserMsg: "q1", Assistant: "a1"}}}
	got := historyPrefix(opts)
	if got == "" {
		t.Error("expected non-empty prefix when history is present")
	}
}
