package inference

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcp"
	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// Simple is the classify → execute → synthesize strategy: analyzeQuery
// picks a path once, up front, and the rest of the query is a straight
// pipeline with no re-evaluation.
type Simple struct {
	manager  *mcp.Manager
	registry *tool.Registry
	gateway  llm.Gateway
	opts     Options
}

// NewSimple builds a Simple strategy bound to manager/registry/gateway.
func NewSimple(manager *mcp.Manager, registry *tool.Registry, gateway llm.Gateway, opts Options) *Simple {
	return &Simple{manager: manager, registry: registry, gateway: gateway, opts: opts}
}

// ProcessQuery implements Strategy.
func (s *Simple) ProcessQuery(ctx context.Context, query string) (string, error) {
	s.opts.Observer.Emit(Event{Kind: EventInferenceStart, Strategy: "simple", Text: query})

	analysis := s.manager.AnalyzeQuery(ctx, query)
	log.Printf("[Simple] analyzeQuery(%q) = %s (%s)", query, analysis.Kind, analysis.Rationale)

	var (
		answer string
		err    error
	)
	switch analysis.Kind {
	case mcp.DirectAnswer:
		answer, err = s.directAnswer(ctx, query)
	case mcp.SingleTool:
		answer, err = s.singleTool(ctx, query)
	case mcp.MultiTool:
		answer, err = s.multiTool(ctx, query)
	default:
		answer, err = s.directAnswer(ctx, query)
	}

	if err != nil {
		s.opts.Observer.Emit(Event{Kind: EventError, Strategy: "simple", Details: err.Error()})
		return "", err
	}

	s.opts.Observer.Emit(Event{Kind: EventInferenceComplete, Strategy: "simple", Text: answer})
	return answer, nil
}

// directAnswer asks the LLM directly, folding in session history. No tools
// are executed for a DIRECT_ANSWER query.
func (s *Simple) directAnswer(ctx context.Context, query string) (string, error) {
	prompt := historyPrefix(s.opts) + query
	resp, err := s.gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "Answer the user's question directly and concisely."},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("simple: direct answer: %w", err)
	}
	return resp.Text, nil
}

// singleTool finds and executes the single best-matching tool, then
// synthesizes a final answer from its output.
func (s *Simple) singleTool(ctx context.Context, query string) (string, error) {
	selections, err := s.manager.FindSingleStepTools(ctx, query, s.registry)
	if err != nil {
		return "", fmt.Errorf("simple: find single-step tools: %w", err)
	}
	if len(selections) == 0 {
		return s.directAnswer(ctx, query)
	}

	s.opts.Observer.Emit(Event{Kind: EventToolDiscovery, Strategy: "simple", Names: toolNames(selections)})

	sel := selections[0]
	s.opts.Observer.Emit(Event{Kind: EventToolSelection, Strategy: "simple", Name: sel.Tool.Name(), Args: sel.Parameters})

	result := s.manager.ExecuteTool(ctx, s.registry, sel.Tool.Name(), sel.Parameters)
	s.opts.Observer.Emit(Event{Kind: EventToolExecution, Strategy: "simple", Name: sel.Tool.Name(), Result: result.Content})

	return s.synthesize(ctx, query, []string{formatToolOutput(sel.Tool.Name(), result)})
}

// multiTool executes an ordered plan serially, substituting {{RESULT_n}}
// placeholders with each prior step's textual output before the call that
// references it.
func (s *Simple) multiTool(ctx context.Context, query string) (string, error) {
	plan, err := s.manager.FindMultiStepTools(ctx, query, s.registry)
	if err != nil {
		return "", fmt.Errorf("simple: find multi-step tools: %w", err)
	}
	if len(plan) == 0 {
		return s.directAnswer(ctx, query)
	}

	names := make([]string, len(plan))
	for i, sel := range plan {
		names[i] = sel.Tool.Name()
	}
	s.opts.Observer.Emit(Event{Kind: EventToolDiscovery, Strategy: "simple", Names: names})

	var priorResults []string
	var observations []string
	for _, sel := range plan {
		params := matcher.Substitute(sel.Parameters, priorResults)
		s.opts.Observer.Emit(Event{Kind: EventToolSelection, Strategy: "simple", Name: sel.Tool.Name(), Args: params})

		result := s.manager.ExecuteTool(ctx, s.registry, sel.Tool.Name(), params)
		s.opts.Observer.Emit(Event{Kind: EventToolExecution, Strategy: "simple", Name: sel.Tool.Name(), Result: result.Content})

		priorResults = append(priorResults, result.Content)
		observations = append(observations, formatToolOutput(sel.Tool.Name(), result))
	}

	return s.synthesize(ctx, query, observations)
}

// synthesize folds query + session history + tool observations into one
// final-answer LLM call.
func (s *Simple) synthesize(ctx context.Context, query string, observations []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(historyPrefix(s.opts))
	fmt.Fprintf(&sb, "Question: %s\n\nTool results:\n", query)
	for _, o := range observations {
		sb.WriteString(o)
		sb.WriteString("\n")
	}
	sb.WriteString("\nSynthesize a concise final answer from the above.")

	resp, err := s.gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "Answer the user's question using the tool results provided."},
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return "", fmt.Errorf("simple: synthesize answer: %w", err)
	}
	return resp.Text, nil
}

// Close releases no resources of its own; Simple holds no state beyond its
// references to shared components.
func (s *Simple) Close() error { return nil }

func toolNames(selections []matcher.Selection) []string {
	out := make([]string, len(selections))
	for i, sel := range selections {
		out[i] = sel.Tool.Name()
	}
	return out
}

// formatToolOutput renders a single tool call's result (success or failure)
// as an observation line for prompt assembly.
func formatToolOutput(name string, result mcpsvc.ToolExecutionResult) string {
	if result.Success {
		return fmt.Sprintf("[%s]: %s", name, result.Content)
	}
	return fmt.Sprintf("[%s] error (%s): %s", name, result.Error, result.Message)
}
