package mcp

import "testing"

func TestSelectionCache_PutGetRoundtrip(t *testing.T) {
	c := newSelectionCache()
	key := selectionKey("what's the weather in Paris", false)
	entries := []selectionEntry{{toolName: "mcp_weather__get", parameters: map[string]any{"city": "Paris"}}}
	c.putSelection(key, entries)

	got, ok := c.getSelection(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].toolName != "mcp_weather__get" {
		t.Errorf("got %+v", got)
	}
}

func TestSelectionCache_SingleAndMultiKeysDoNotCollide(t *testing.T) {
	c := newSelectionCache()
	query := "book a flight and a hotel"
	c.putSelection(selectionKey(query, false), []selectionEntry{{toolName: "single"}})
	c.putSelection(selectionKey(query, true), []selectionEntry{{toolName: "multi"}})

	single, ok := c.getSelection(selectionKey(query, false))
	if !ok || single[0].toolName != "single" {
		t.Errorf("single-step entry = %+v", single)
	}
	multi, ok := c.getSelection(selectionKey(query, true))
	if !ok || multi[0].toolName != "multi" {
		t.Errorf("multi-step entry = %+v", multi)
	}
}

func TestSelectionCache_Invalidate(t *testing.T) {
	c := newSelectionCache()
	key := selectionKey("q", false)
	c.putSelection(key, []selectionEntry{{toolName: "t"}})
	c.putUtility(utilityKey("obs", "q"), true)

	c.invalidate()

	if _, ok := c.getSelection(key); ok {
		t.Error("expected selections to be cleared")
	}
	if _, ok := c.getUtility(utilityKey("obs", "q")); ok {
		t.Error("expected utilities to be cleared")
	}
}

func TestUtilityKey_DistinguishesObservationFromQuery(t *testing.T) {
	a := utilityKey("ab", "c")
	b := utilityKey("a", "bc")
	if a == b {
		t.Error("expected different observation/query splits to produce different keys")
	}
}
