// Package matcher selects and parameterizes tools for a query: given a
// shortlist of candidate tools (already narrowed by the domain registry),
// it asks the LLM which to use and with what arguments, via one of three
// prompt templates (single-selection, single-with-parameters, multi-tool
// plan), and defensively parses the reply.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/rules"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// resultPlaceholder matches {{RESULT_n}} occurrences in a parameter value.
var resultPlaceholder = regexp.MustCompile(`\{\{RESULT_(\d+)\}\}`)

// Selection is one tool chosen for execution along with its parameters.
// Parameters may still contain {{RESULT_n}} placeholders for multi-tool
// plans; callers substitute those just before execution via Substitute.
type Selection struct {
	Tool       tool.Tool
	Parameters map[string]any
}

// Matcher selects and parameterizes tools using an LLM gateway, with
// prompts augmented by a rule engine before they are sent.
type Matcher struct {
	gateway llm.Gateway
	rules   *rules.Engine
}

// NewMatcher creates a Matcher. rulesEngine may be nil, in which case
// prompts are sent unaugmented.
func NewMatcher(gateway llm.Gateway, rulesEngine *rules.Engine) *Matcher {
	return &Matcher{gateway: gateway, rules: rulesEngine}
}

// SetGateway swaps the LLM used for matching (e.g. on /llm switch).
func (m *Matcher) SetGateway(gateway llm.Gateway) {
	m.gateway = gateway
}

type singleSelectionReply struct {
	Indices []int `json:"indices"`
}

// SelectSingle asks which of the candidate tools apply to query, as a JSON
// index list (every matcher prompt style is JSON, for uniform parsing). An
// empty result is valid: it means no candidate applies. A free-form
// fallback parse (scanning bare digits out of the reply) covers replies
// that don't quite land as valid JSON.
func (m *Matcher) SelectSingle(ctx context.Context, query string, candidates []tool.Tool) ([]tool.Tool, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Given the user query below, identify every tool (by number) that directly applies. If none apply, return an empty list.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nTools:\n", query)
	for i, t := range candidates {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, t.Name(), t.Description())
	}
	sb.WriteString("\nRespond with ONLY JSON: {\"indices\": [<n>, ...]}")
	prompt := m.enhance(sb.String(), candidates, nil)

	resp, err := m.gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("matcher: single-selection call: %w", err)
	}

	raw := stripFence(resp.Text)
	var reply singleSelectionReply
	indices := []int{}
	if err := json.Unmarshal([]byte(raw), &reply); err == nil {
		indices = reply.Indices
	} else {
		indices = parseIndexList(raw)
	}

	var out []tool.Tool
	for _, idx := range indices {
		if idx >= 1 && idx <= len(candidates) {
			out = append(out, candidates[idx-1])
		}
	}
	return out, nil
}

type singleWithParamsReply struct {
	ToolNumber int            `json:"tool_number"`
	Parameters map[string]any `json:"parameters"`
}

// SelectSingleWithParams asks the LLM to pick one candidate and supply its
// parameters as JSON, inferring any missing required parameters from world
// knowledge (e.g. resolving a named city to coordinates). Returns nil if the
// LLM declines to select any candidate.
func (m *Matcher) SelectSingleWithParams(ctx context.Context, query string, candidates []tool.Tool) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Given the user query below, choose the single best tool and supply its parameters. ")
	sb.WriteString("If a required parameter is not explicit in the query, infer it from world knowledge (for example, resolve a named city to its coordinates).\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nTools:\n", query)
	for i, t := range candidates {
		fmt.Fprintf(&sb, "%d. %s — %s\n   schema: %s\n", i+1, t.Name(), t.Description(), string(t.InputSchema()))
	}
	sb.WriteString("\nRespond with ONLY JSON: {\"tool_number\": <n>, \"parameters\": {...}}")
	prompt := m.enhance(sb.String(), candidates, nil)

	resp, err := m.gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("matcher: single-with-parameters call: %w", err)
	}

	var reply singleWithParamsReply
	if err := json.Unmarshal([]byte(stripFence(resp.Text)), &reply); err != nil {
		return nil, fmt.Errorf("matcher: parse single-with-parameters reply: %w", err)
	}
	if reply.ToolNumber < 1 || reply.ToolNumber > len(candidates) {
		return nil, nil
	}

	chosen := candidates[reply.ToolNumber-1]
	return &Selection{
		Tool:       chosen,
		Parameters: coerceParams(chosen.InputSchema(), reply.Parameters),
	}, nil
}

type multiToolEntry struct {
	ToolNumber int            `json:"tool_number"`
	Parameters map[string]any `json:"parameters"`
}

type multiToolReply struct {
	Tools []multiToolEntry `json:"tools"`
}

// PlanMultiStep asks for an ordered JSON plan over the candidates,
// preserving execution order. Parameter values may contain {{RESULT_n}}
// placeholders referring to the n-th prior step's output in the returned
// plan (not the candidate list); the prompt demands the minimum tool set.
func (m *Matcher) PlanMultiStep(ctx context.Context, query string, candidates []tool.Tool) ([]Selection, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Given the user query below, produce the minimum ordered sequence of tool calls needed to answer it. ")
	sb.WriteString("A parameter value may reference a prior step's output using the placeholder {{RESULT_n}} (1-based, referring to this plan's own steps).\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nTools:\n", query)
	for i, t := range candidates {
		fmt.Fprintf(&sb, "%d. %s — %s\n   schema: %s\n", i+1, t.Name(), t.Description(), string(t.InputSchema()))
	}
	sb.WriteString("\nRespond with ONLY JSON: {\"tools\": [{\"tool_number\": <n>, \"parameters\": {...}}, ...]}")
	prompt := m.enhance(sb.String(), candidates, nil)

	resp, err := m.gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("matcher: multi-tool plan call: %w", err)
	}

	var reply multiToolReply
	if err := json.Unmarshal([]byte(stripFence(resp.Text)), &reply); err != nil {
		return nil, fmt.Errorf("matcher: parse multi-tool plan reply: %w", err)
	}

	out := make([]Selection, 0, len(reply.Tools))
	for _, entry := range reply.Tools {
		if entry.ToolNumber < 1 || entry.ToolNumber > len(candidates) {
			continue
		}
		chosen := candidates[entry.ToolNumber-1]
		out = append(out, Selection{
			Tool:       chosen,
			Parameters: coerceParams(chosen.InputSchema(), entry.Parameters),
		})
	}
	return out, nil
}

// enhance runs the base prompt through the rule engine for every candidate
// tool's owning server, keyed by plain server ID — the Rule Engine's
// "server name" trigger scope matches the server-rules config's "name"
// field, not a tool's fully-qualified mcp_<server>__<tool> name.
func (m *Matcher) enhance(basePrompt string, candidates []tool.Tool, parameters map[string]any) string {
	if m.rules == nil {
		return basePrompt
	}
	prompt := basePrompt
	for _, c := range candidates {
		prompt = m.rules.EnhancePrompt(prompt, serverIDFromToolName(c.Name()), parameters)
	}
	return prompt
}

// serverIDFromToolName recovers the plain server ID from an MCPToolAdapter's
// fully-qualified name ("mcp_<server>__<tool>"). Duplicated from
// internal/mcp (rather than imported) to avoid an import cycle: internal/mcp
// already imports internal/matcher.
func serverIDFromToolName(name string) string {
	const prefix = "mcp_"
	if !strings.HasPrefix(name, prefix) {
		return ""
	}
	rest := name[len(prefix):]
	if idx := strings.Index(rest, "__"); idx >= 0 {
		return rest[:idx]
	}
	return ""
}

// Substitute replaces every {{RESULT_n}} occurrence in each string
// parameter value with the n-th entry of priorResults (1-based). A
// placeholder referencing an out-of-range index is left untouched.
func Substitute(params map[string]any, priorResults []string) map[string]any {
	if len(params) == 0 {
		return params
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		out[k] = resultPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
			groups := resultPlaceholder.FindStringSubmatch(match)
			var n int
			fmt.Sscanf(groups[1], "%d", &n)
			if n >= 1 && n <= len(priorResults) {
				return priorResults[n-1]
			}
			return match
		})
	}
	return out
}
