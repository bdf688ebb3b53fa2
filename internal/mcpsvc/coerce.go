package mcpsvc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// schemaProperty is the subset of a JSON Schema property CoerceParams
// understands: the declared type for coercion, and an optional default
// value for properties missing from the call's arguments.
type schemaProperty struct {
	Type    string `json:"type"`
	Default any    `json:"default"`
}

type objectSchema struct {
	Properties map[string]schemaProperty `json:"properties"`
}

// CoerceParams validates and normalizes params against the tool's JSON
// Schema before a call reaches the server: each declared property is
// type-coerced (string | number | integer | boolean | array; array falls
// back to a comma-split of a bare string), and any property that declares
// a "default" and is absent from params is filled in. Values for
// properties the schema doesn't describe, or whose coercion fails, pass
// through unchanged. Called from CallTool so every call path — Matcher-
// originated or a strategy's own direct tool selection — gets the same
// normalization, not just the ones that happen to run through the Matcher.
func CoerceParams(schema []byte, params map[string]any) map[string]any {
	var obj objectSchema
	if err := json.Unmarshal(schema, &obj); err != nil || len(obj.Properties) == 0 {
		return params
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		prop, ok := obj.Properties[k]
		if !ok {
			out[k] = v
			continue
		}
		out[k] = coerceValue(prop.Type, v)
	}
	for name, prop := range obj.Properties {
		if _, present := out[name]; !present && prop.Default != nil {
			out[name] = prop.Default
		}
	}
	return out
}

func coerceValue(schemaType string, v any) any {
	switch schemaType {
	case "string":
		if s, ok := v.(string); ok {
			return s
		}
		return v
	case "number":
		switch x := v.(type) {
		case float64:
			return x
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return v
	case "integer":
		switch x := v.(type) {
		case float64:
			return int(x)
		case string:
			if n, err := strconv.Atoi(x); err == nil {
				return n
			}
		}
		return v
	case "boolean":
		switch x := v.(type) {
		case bool:
			return x
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
		return v
	case "array":
		switch x := v.(type) {
		case []any:
			return x
		case string:
			parts := strings.Split(x, ",")
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = strings.TrimSpace(p)
			}
			return out
		}
		return v
	default:
		return v
	}
}
