package inference

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/domain"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcp"
)

func TestSimple_DirectAnswer_NoToolsInvoked(t *testing.T) {
	gw := newFakeGateway("Shakespeare wrote Hamlet.")
	mgr := newTestManager(t, gw)
	obs := NewObserver()
	events := drainEvents(obs)

	s := NewSimple(mgr, emptyRegistry(), gw, Options{Observer: obs})
	answer, err := s.ProcessQuery(context.Background(), "Who wrote Hamlet?")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !strings.Contains(answer, "Shakespeare") {
		t.Errorf("answer = %q, want it to mention Shakespeare", answer)
	}

	obs.Close()
	got := <-events
	for _, e := range got {
		if e.Kind == EventToolSelection {
			t.Errorf("expected no tool-selection events for a direct answer, got %+v", e)
		}
	}
}

func TestSimple_SingleTool_FallsBackToDirectAnswerWithNoCandidates(t *testing.T) {
	// A domain whose pattern matches the query makes analyzeQuery pick
	// SINGLE_TOOL, but with no MCP servers connected findSingleStepTools
	// returns no candidates — Simple must fall back to a direct answer
	// rather than erroring.
	gw := newFakeGateway("fallback answer")
	domainsPath := filepath.Join(t.TempDir(), "domains.json")
	if err := os.WriteFile(domainsPath, []byte(`{"weather":{"name":"weather","patterns":["what's the weather"]}}`), 0o644); err != nil {
		t.Fatalf("write domains.json: %v", err)
	}
	reg, err := domain.NewRegistry(domainsPath, nil) // pattern phase only
	if err != nil {
		t.Fatalf("domain.NewRegistry: %v", err)
	}
	mgr := mcp.NewManager(filepath.Join(t.TempDir(), "fleet.json"), reg, matcher.NewMatcher(gw, nil), gw)
	if kind := mgr.AnalyzeQuery(context.Background(), "what's the weather like").Kind; kind != mcp.SingleTool {
		t.Fatalf("AnalyzeQuery kind = %v, want SINGLE_TOOL", kind)
	}
	s := NewSimple(mgr, emptyRegistry(), gw, Options{})

	answer, err := s.ProcessQuery(context.Background(), "what's the weather like")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if answer != "fallback answer" {
		t.Errorf("answer = %q, want the direct-answer fallback text", answer)
	}
}

func TestSimple_Close_NoError(t *testing.T) {
	s := NewSimple(nil, nil, nil, Options{})
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
