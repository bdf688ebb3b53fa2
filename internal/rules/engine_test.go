package rules

import "testing"

func TestEnhancePrompt_ContextAddFiresOnParameterTrigger(t *testing.T) {
	e := NewEngine()
	e.byName["weather-api"] = []Item{
		{
			Triggers: []string{"city"},
			Rules:    Actions{ContextAdd: "Use ISO country codes when ambiguous."},
		},
	}

	got := e.EnhancePrompt("Pick a tool for this query.", "weather-api", map[string]any{"city": "Paris"})
	want := "Pick a tool for this query.\nUse ISO country codes when ambiguous."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEnhancePrompt_NoFireLeavesPromptUnchanged(t *testing.T) {
	e := NewEngine()
	e.byName["weather-api"] = []Item{
		{Triggers: []string{"city"}, Rules: Actions{ContextAdd: "extra"}},
	}
	got := e.EnhancePrompt("base", "weather-api", map[string]any{"other": "x"})
	if got != "base" {
		t.Errorf("got %q, want unchanged base prompt", got)
	}
}

func TestEnhancePrompt_ContentKeywordTrigger(t *testing.T) {
	e := NewEngine()
	e.byName["search-api"] = []Item{
		{ContentKeywords: []string{"recent news"}, Rules: Actions{ContextAdd: "Prefer the last 7 days."}},
	}
	got := e.EnhancePrompt("Find recent news about elections.", "search-api", nil)
	if got == "Find recent news about elections." {
		t.Error("expected content-keyword trigger to fire")
	}
}

func TestEnhancePrompt_ParameterReplace(t *testing.T) {
	e := NewEngine()
	e.byName["svc"] = []Item{
		{
			Triggers: []string{"q"},
			Rules: Actions{
				ParameterReplace: &ParameterReplace{Pattern: `\bUSA\b`, Replacement: "United States"},
			},
		},
	}
	got := e.EnhancePrompt("weather in USA today", "svc", map[string]any{"q": "USA"})
	want := "weather in United States today"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEnhancePrompt_UnknownServerIsNoop(t *testing.T) {
	e := NewEngine()
	got := e.EnhancePrompt("base", "does-not-exist", nil)
	if got != "base" {
		t.Errorf("got %q, want unchanged", got)
	}
}
