package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcp"
	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// observationClass is the three-way verdict isObservationUseful's callers
// reduce every tool result to.
type observationClass string

const (
	classUseful  observationClass = "USEFUL_DATA"
	classGeneric observationClass = "GENERIC_SUCCESS"
	classError   observationClass = "ERROR"
)

// reactStep is one entry of the running iteration log: either a thought, a
// tool call plus its observation, or the terminal answer.
type reactStep struct {
	Thought     string
	ToolName    string
	ToolArgs    map[string]any
	Observation string
	Class       observationClass
	Terminal    bool
}

// reactDecision is the parsed shape of the LLM's action-decision reply:
// either it names a tool to use, or it supplies a final answer directly.
type reactDecision struct {
	Action     string         `json:"action"` // "USE_TOOL" | "FINAL_ANSWER"
	ToolName   string         `json:"tool_name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Answer     string         `json:"answer,omitempty"`
}

// React is the iterative think/act/observe strategy: THINK → DECIDE →
// {TOOL → OBSERVE → THINK | ANSWER → END}, with a no-progress detector that
// forces an early ANSWER rather than spinning to the iteration ceiling.
type React struct {
	manager  *mcp.Manager
	registry *tool.Registry
	gateway  llm.Gateway
	opts     Options

	maxIterations int
}

// NewReact builds a React strategy. opts.MaxIterations is clamped to the
// immutable hard ceiling of 7 regardless of what is requested.
func NewReact(manager *mcp.Manager, registry *tool.Registry, gateway llm.Gateway, opts Options) *React {
	return &React{
		manager:       manager,
		registry:      registry,
		gateway:       gateway,
		opts:          opts,
		maxIterations: reactIterationCeiling(opts.MaxIterations),
	}
}

// ProcessQuery implements Strategy.
func (r *React) ProcessQuery(ctx context.Context, query string) (string, error) {
	r.opts.Observer.Emit(Event{Kind: EventInferenceStart, Strategy: "react", Text: query})

	candidates := r.manager.CandidateTools(ctx, query, r.registry)
	names := make([]string, len(candidates))
	for i, t := range candidates {
		names[i] = t.Name()
	}
	r.opts.Observer.Emit(Event{Kind: EventToolDiscovery, Strategy: "react", Names: names})

	var (
		steps       []reactStep
		usefulCount int
		toolUses    = map[string]int{}
		lastResult  string
	)

	for iter := 0; iter < r.maxIterations; iter++ {
		select {
		case <-ctx.Done():
			r.opts.Observer.Emit(Event{Kind: EventError, Strategy: "react", Details: ctx.Err().Error()})
			return r.synthesizeFromLog(ctx, query, steps)
		default:
		}

		thought, err := r.think(ctx, query, steps)
		if err != nil {
			return "", fmt.Errorf("react: think: %w", err)
		}
		r.opts.Observer.Emit(Event{Kind: EventThought, Strategy: "react", Text: thought})
		steps = append(steps, reactStep{Thought: thought})

		decision, err := r.decide(ctx, query, steps, candidates)
		if err != nil {
			return "", fmt.Errorf("react: decide: %w", err)
		}

		if decision.Action == "FINAL_ANSWER" {
			steps = append(steps, reactStep{Terminal: true, Observation: decision.Answer})
			r.opts.Observer.Emit(Event{Kind: EventInferenceComplete, Strategy: "react", Text: decision.Answer})
			return decision.Answer, nil
		}

		params := decision.Parameters
		if lastResult != "" {
			params = matcher.Substitute(params, []string{lastResult})
		}
		r.opts.Observer.Emit(Event{Kind: EventToolSelection, Strategy: "react", Name: decision.ToolName, Args: params})

		result := r.manager.ExecuteTool(ctx, r.registry, decision.ToolName, params)
		r.opts.Observer.Emit(Event{Kind: EventToolExecution, Strategy: "react", Name: decision.ToolName, Result: result.Content})

		observation := formatToolOutput(decision.ToolName, result)
		class := r.classify(ctx, observation, query, result)
		lastResult = result.Content
		toolUses[decision.ToolName]++

		step := reactStep{ToolName: decision.ToolName, ToolArgs: params, Observation: observation, Class: class}
		steps = append(steps, step)

		if class == classUseful {
			usefulCount++
		}

		if stop, reason := r.shouldStop(steps, usefulCount, toolUses); stop {
			log.Printf("[ReAct] stopping after %d iteration(s): %s", iter+1, reason)
			break
		}
	}

	return r.synthesizeFromLog(ctx, query, steps)
}

// shouldStop applies the continuation policy's stop conditions (b)-(e);
// (a) FINAL_ANSWER and (d) the iteration ceiling are handled by the caller.
func (r *React) shouldStop(steps []reactStep, usefulCount int, toolUses map[string]int) (bool, string) {
	if usefulCount >= 2 {
		return true, "accumulated 2 useful observations"
	}
	for name, n := range toolUses {
		if n >= 3 {
			return true, fmt.Sprintf("tool %q used 3 times without new useful data", name)
		}
	}
	if noProgress(steps) {
		return true, "last 2 observations were non-useful and total >= 3"
	}
	return false, ""
}

// noProgress implements continuation-policy rule (e): the last 2 tool
// observations were non-useful and at least 3 tool observations have been
// made overall.
func noProgress(steps []reactStep) bool {
	var obs []reactStep
	for _, s := range steps {
		if s.ToolName != "" {
			obs = append(obs, s)
		}
	}
	if len(obs) < 3 {
		return false
	}
	last2 := obs[len(obs)-2:]
	for _, s := range last2 {
		if s.Class == classUseful {
			return false
		}
	}
	return true
}

// think asks the LLM to reason about the next step given the running
// iteration context.
func (r *React) think(ctx context.Context, query string, steps []reactStep) (string, error) {
	prompt := historyPrefix(r.opts) + fmt.Sprintf("Question: %s\n\n%s\n\nWhat should be done next? Reason briefly.", query, renderLog(steps))
	resp, err := r.gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You are reasoning step by step toward answering the user's question."},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// decide asks the LLM to choose between USE_TOOL and FINAL_ANSWER, with
// the candidate tool set and a progress summary folded into the prompt.
func (r *React) decide(ctx context.Context, query string, steps []reactStep, candidates []tool.Tool) (reactDecision, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n%s\n\nAvailable tools:\n", query, renderLog(steps))
	for _, t := range candidates {
		fmt.Fprintf(&sb, "- %s — %s\n   schema: %s\n", t.Name(), t.Description(), string(t.InputSchema()))
	}
	sb.WriteString("\nEither call a tool or give the final answer. Respond with ONLY JSON in one of these shapes:\n")
	sb.WriteString(`{"action":"USE_TOOL","tool_name":"...","parameters":{...}}` + "\n")
	sb.WriteString(`{"action":"FINAL_ANSWER","answer":"..."}`)

	resp, err := r.gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: sb.String()}})
	if err != nil {
		return reactDecision{}, err
	}

	raw := strings.TrimSpace(resp.Text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var decision reactDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		// A reply that doesn't parse is treated as a direct answer rather
		// than aborting the query outright.
		return reactDecision{Action: "FINAL_ANSWER", Answer: resp.Text}, nil
	}
	return decision, nil
}

// classify delegates to the Manager's isObservationUseful, with a direct
// ERROR verdict for failed tool calls (skipping the LLM round-trip for the
// obvious case).
func (r *React) classify(ctx context.Context, observation, query string, result mcpsvc.ToolExecutionResult) observationClass {
	if !result.Success {
		return classError
	}
	if r.manager.IsObservationUseful(ctx, observation, query) {
		return classUseful
	}
	return classGeneric
}

// synthesizeFromLog produces a final answer from the accumulated log when
// the loop ends without an explicit FINAL_ANSWER (iteration ceiling or an
// early stop condition).
func (r *React) synthesizeFromLog(ctx context.Context, query string, steps []reactStep) (string, error) {
	prompt := historyPrefix(r.opts) + fmt.Sprintf("Question: %s\n\n%s\n\nSynthesize the best final answer from the above, even if incomplete.", query, renderLog(steps))
	resp, err := r.gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "Answer the user's question using the reasoning and tool results gathered so far."},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		r.opts.Observer.Emit(Event{Kind: EventError, Strategy: "react", Details: err.Error()})
		return "", fmt.Errorf("react: synthesize: %w", err)
	}
	r.opts.Observer.Emit(Event{Kind: EventInferenceComplete, Strategy: "react", Text: resp.Text})
	return resp.Text, nil
}

// renderLog formats the iteration log as plain text context for the next
// LLM call.
func renderLog(steps []reactStep) string {
	var sb strings.Builder
	for i, s := range steps {
		switch {
		case s.Terminal:
			fmt.Fprintf(&sb, "[Step %d] Final answer: %s\n", i+1, s.Observation)
		case s.ToolName != "":
			fmt.Fprintf(&sb, "[Step %d] Tool %s(%v) -> %s (%s)\n", i+1, s.ToolName, s.ToolArgs, s.Observation, s.Class)
		case s.Thought != "":
			fmt.Fprintf(&sb, "[Step %d] Thought: %s\n", i+1, s.Thought)
		}
	}
	if sb.Len() == 0 {
		return "(no steps yet)"
	}
	return sb.String()
}

// Close releases no resources of its own.
func (r *React) Close() error { return nil }
