package inference

import (
	"context"
	"testing"
)

func TestReflection_RefinesUntilQualityThresholdMet(t *testing.T) {
	gw := newFakeGateway(
		"a rough first draft",                                                                   // draft
		`{"completeness":0.4,"accuracy":0.5,"clarity":0.4,"relevance":0.5,"quality":0.45,"remarks":"too vague"}`, // critique round 1
		"a much better, more specific answer",                                                   // refine round 1
		`{"completeness":0.9,"accuracy":0.9,"clarity":0.9,"relevance":0.9,"quality":0.92,"remarks":"solid"}`,     // critique round 2: passes
	)
	mgr := newTestManager(t, gw)
	obs := NewObserver()
	events := drainEvents(obs)

	rf := NewReflection(mgr, emptyRegistry(), gw, Options{Observer: obs})
	answer, err := rf.ProcessQuery(context.Background(), "Explain how TCP handshakes work.")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if answer != "a much better, more specific answer" {
		t.Errorf("answer = %q, want the refined answer once quality clears the threshold", answer)
	}

	obs.Close()
	got := <-events
	if got[len(got)-1].Kind != EventInferenceComplete {
		t.Errorf("last event kind = %v, want inference-complete", got[len(got)-1].Kind)
	}
}

func TestReflection_StopsAtMaxRoundsWithoutMeetingThreshold(t *testing.T) {
	gw := newFakeGateway(
		"draft",
		`{"quality":0.1,"remarks":"weak"}`, "refine 1",
		`{"quality":0.2,"remarks":"still weak"}`, "refine 2",
	)
	mgr := newTestManager(t, gw)
	rf := NewReflection(mgr, emptyRegistry(), gw, Options{MaxIterations: 2})

	answer, err := rf.ProcessQuery(context.Background(), "a hard question")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if answer != "refine 2" {
		t.Errorf("answer = %q, want the last refine even though quality never cleared the threshold", answer)
	}
}

func TestReflection_UnparsableCritiqueTreatedAsLowQuality(t *testing.T) {
	gw := newFakeGateway("draft", "not json at all", "refined once")
	mgr := newTestManager(t, gw)
	rf := NewReflection(mgr, emptyRegistry(), gw, Options{MaxIterations: 1})

	answer, err := rf.ProcessQuery(context.Background(), "question")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if answer != "refined once" {
		t.Errorf("answer = %q, want a refine round triggered by the unparsable critique", answer)
	}
}

func TestReflection_Close_NoError(t *testing.T) {
	rf := NewReflection(nil, nil, nil, Options{})
	if err := rf.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
