package domain

import "testing"

func TestScoreByPattern_MatchesPatternAndKeyword(t *testing.T) {
	defs := map[string]Definition{
		"weather": {
			Name:             "weather",
			Patterns:         []string{"forecast"},
			SemanticKeywords: []string{"rain", "temperature"},
		},
		"finance": {
			Name:     "finance",
			Patterns: []string{"stock price"},
		},
	}

	scores := scoreByPattern("what is the forecast for tomorrow, will it rain?", defs)
	if len(scores) != 1 {
		t.Fatalf("expected 1 matching domain, got %d: %+v", len(scores), scores)
	}
	if scores[0].Name != "weather" {
		t.Errorf("Name = %q, want weather", scores[0].Name)
	}
	if scores[0].Value <= 0 || scores[0].Value > 1 {
		t.Errorf("Value = %v, want in (0,1]", scores[0].Value)
	}
}

func TestScoreByPattern_NoMatchIsEmpty(t *testing.T) {
	defs := map[string]Definition{
		"weather": {Name: "weather", Patterns: []string{"forecast"}},
	}
	scores := scoreByPattern("tell me a joke", defs)
	if len(scores) != 0 {
		t.Errorf("expected no matches, got %+v", scores)
	}
}

func TestScoreByPattern_LongerMatchRanksHigher(t *testing.T) {
	defs := map[string]Definition{
		"a": {Name: "a", Patterns: []string{"st"}},
		"b": {Name: "b", Patterns: []string{"stock price history"}},
	}
	scores := scoreByPattern("show me the stock price history please", defs)
	if len(scores) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(scores))
	}
	if scores[0].Name != "b" {
		t.Errorf("expected domain with longer literal match to rank first, got %q", scores[0].Name)
	}
}

func TestStripJSONFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n[{\"name\":\"x\"}]\n```", `[{"name":"x"}]`},
		{"[{\"name\":\"x\"}]", `[{"name":"x"}]`},
		{"```\n[1,2,3]\n```", "[1,2,3]"},
	}
	for _, c := range cases {
		if got := stripJSONFence(c.in); got != c.want {
			t.Errorf("stripJSONFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
