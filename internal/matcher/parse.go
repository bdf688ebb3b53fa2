package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
)

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripFence removes a surrounding Markdown code fence and trims
// whitespace, tolerating LLM replies that either fence their JSON or
// return it bare, and tolerating trailing commentary after the fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

var indexPattern = regexp.MustCompile(`\d+`)

// parseIndexList extracts a list of 1-based tool indices from a free-form
// reply like "1,3" or "Tools 1 and 3 apply.". Invalid or out-of-range
// indices are the caller's responsibility to discard; an empty result is a
// valid outcome (no tool applies).
func parseIndexList(text string) []int {
	matches := indexPattern.FindAllString(text, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// coerceParams type-coerces params against schema at selection time, so a
// Selection's Parameters are already well-typed before caching/{{RESULT_n}}
// substitution. mcpsvc.CallTool applies the same schema (plus default
// filling) again right before the wire call, which is the authoritative
// pass every call path — Matcher-originated or not — always goes through.
func coerceParams(schema []byte, params map[string]any) map[string]any {
	if len(params) == 0 {
		return params
	}
	return mcpsvc.CoerceParams(schema, params)
}
