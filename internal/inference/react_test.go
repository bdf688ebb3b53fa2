package inference

import (
	"context"
	"strings"
	"testing"
)

func TestReact_UsesToolThenFinalAnswer(t *testing.T) {
	gw := newFakeGateway(
		"considering the weather request",                                                              // think (iter 1)
		`{"action":"USE_TOOL","tool_name":"weather_get_forecast","parameters":{"lat":-15.78,"lon":-47.88}}`, // decide (iter 1)
		"true",                                                                                           // classify observation
		"enough data gathered",                                                                           // think (iter 2)
		`{"action":"FINAL_ANSWER","answer":"The forecast in Brasília is sunny, 28C."}`,                    // decide (iter 2)
	)
	mgr := newTestManager(t, gw)
	reg := registryWith(&stubTool{name: "weather_get_forecast", output: "Brasília: sunny, 28C"})
	obs := NewObserver()
	events := drainEvents(obs)

	r := NewReact(mgr, reg, gw, Options{Observer: obs})
	answer, err := r.ProcessQuery(context.Background(), "Weather in Brasília?")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !strings.Contains(answer, "Brasília") {
		t.Errorf("answer = %q, want it to mention Brasília", answer)
	}

	obs.Close()
	got := <-events
	toolCalls := 0
	for _, e := range got {
		if e.Kind == EventToolSelection {
			toolCalls++
		}
	}
	if toolCalls != 1 {
		t.Errorf("tool-selection events = %d, want exactly 1", toolCalls)
	}
}

func TestReact_StopsAfterThreeUsesOfSameFailingTool(t *testing.T) {
	gw := newFakeGateway(
		"try the tool", `{"action":"USE_TOOL","tool_name":"always_fails","parameters":{}}`,
		"try again", `{"action":"USE_TOOL","tool_name":"always_fails","parameters":{}}`,
		"try once more", `{"action":"USE_TOOL","tool_name":"always_fails","parameters":{}}`,
		"giving up, here is what I know", // synthesizeFromLog
	)
	mgr := newTestManager(t, gw)
	reg := registryWith(&stubTool{name: "always_fails", fail: true})

	r := NewReact(mgr, reg, gw, Options{MaxIterations: 5})
	answer, err := r.ProcessQuery(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if answer != "giving up, here is what I know" {
		t.Errorf("answer = %q, want the synthesized fallback", answer)
	}
}

func TestReact_StopsAtHardCeilingEvenIfRequestedHigher(t *testing.T) {
	r := NewReact(nil, nil, nil, Options{MaxIterations: 1000})
	if r.maxIterations != reactHardCeiling {
		t.Errorf("maxIterations = %d, want clamped to %d", r.maxIterations, reactHardCeiling)
	}
}

func TestNoProgress_RequiresAtLeastThreeObservations(t *testing.T) {
	steps := []reactStep{
		{ToolName: "t", Class: classGeneric},
		{ToolName: "t", Class: classGeneric},
	}
	if noProgress(steps) {
		t.Error("expected noProgress to require >= 3 tool observations")
	}
}

func TestNoProgress_TrueWhenLastTwoAreNonUseful(t *testing.T) {
	steps := []reactStep{
		{ToolName: "t", Class: classUseful},
		{ToolName: "t", Class: classGeneric},
		{ToolName: "t", Class: classError},
	}
	if !noProgress(steps) {
		t.Error("expected noProgress true when last 2 of >= 3 observations are non-useful")
	}
}

func TestNoProgress_FalseWhenRecentObservationIsUseful(t *testing.T) {
	steps := []reactStep{
		{ToolName: "t", Class: classGeneric},
		{ToolName: "t", Class: classGeneric},
		{ToolName: "t", Class: classUseful},
	}
	if noProgress(steps) {
		t.Error("expected noProgress false when the most recent observation is useful")
	}
}

func TestReact_Close_NoError(t *testing.T) {
	r := NewReact(nil, nil, nil, Options{})
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
