package matcher

import (
	"reflect"
	"testing"
)

func TestStripFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"{\"a\":1}", `{"a":1}`},
		{"```\n[1,2]\n```  ", "[1,2]"},
	}
	for _, c := range cases {
		if got := stripFence(c.in); got != c.want {
			t.Errorf("stripFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseIndexList(t *testing.T) {
	cases := []struct {
		in   string
		want []int
	}{
		{"1,3", []int{1, 3}},
		{"Tools 1 and 3 apply.", []int{1, 3}},
		{"", nil},
		{"none apply", nil},
	}
	for _, c := range cases {
		got := parseIndexList(c.in)
		if len(got) == 0 && len(c.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("parseIndexList(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCoerceParams_TypesFromSchema(t *testing.T) {
	schema := []byte(`{"type":"object","properties":{
		"count":{"type":"integer"},
		"ratio":{"type":"number"},
		"enabled":{"type":"boolean"},
		"tags":{"type":"array"},
		"name":{"type":"string"}
	}}`)
	params := map[string]any{
		"count":   "5",
		"ratio":   "1.5",
		"enabled": "true",
		"tags":    "a, b, c",
		"name":    "ok",
	}
	got := coerceParams(schema, params)
	if got["count"] != 5 {
		t.Errorf("count = %#v, want int 5", got["count"])
	}
	if got["ratio"] != 1.5 {
		t.Errorf("ratio = %#v, want 1.5", got["ratio"])
	}
	if got["enabled"] != true {
		t.Errorf("enabled = %#v, want true", got["enabled"])
	}
	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 3 {
		t.Errorf("tags = %#v, want 3-element slice", got["tags"])
	}
}

func TestCoerceParams_UnknownPropertyPassesThrough(t *testing.T) {
	schema := []byte(`{"type":"object","properties":{"known":{"type":"string"}}}`)
	params := map[string]any{"unknown": 42}
	got := coerceParams(schema, params)
	if got["unknown"] != 42 {
		t.Errorf("expected unknown property to pass through unchanged, got %#v", got["unknown"])
	}
}
