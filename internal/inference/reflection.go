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
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// critique is the structured rubric score + remarks the critique step asks
// the LLM to produce.
type critique struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Clarity      float64 `json:"clarity"`
	Relevance    float64 `json:"relevance"`
	Quality      float64 `json:"quality"` // overall score in [0,1]
	Remarks      string  `json:"remarks"`
}

// Reflection is the draft → critique → refine strategy: it writes a draft
// answer, scores it against a fixed rubric, and iterates refine/critique
// rounds until the quality score clears reflectionQualityTarget or the
// round budget is spent.
type Reflection struct {
	manager  *mcp.Manager
	registry *tool.Registry
	gateway  llm.Gateway
	opts     Options

	maxRounds int
}

// NewReflection builds a Reflection strategy.
func NewReflection(manager *mcp.Manager, registry *tool.Registry, gateway llm.Gateway, opts Options) *Reflection {
	return &Reflection{
		manager:   manager,
		registry:  registry,
		gateway:   gateway,
		opts:      opts,
		maxRounds: reflectionRoundCeiling(opts.MaxIterations),
	}
}

// ProcessQuery implements Strategy.
func (rf *Reflection) ProcessQuery(ctx context.Context, query string) (string, error) {
	rf.opts.Observer.Emit(Event{Kind: EventInferenceStart, Strategy: "reflection", Text: query})

	toolContext, err := rf.gatherToolContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("reflection: gather tool context: %w", err)
	}

	answer, err := rf.draft(ctx, query, toolContext)
	if err != nil {
		return "", fmt.Errorf("reflection: draft: %w", err)
	}
	rf.opts.Observer.Emit(Event{Kind: EventPartialResponse, Strategy: "reflection", Text: answer})

	for round := 0; round < rf.maxRounds; round++ {
		select {
		case <-ctx.Done():
			rf.opts.Observer.Emit(Event{Kind: EventError, Strategy: "reflection", Details: ctx.Err().Error()})
			return answer, nil
		default:
		}

		c, err := rf.critiqueAnswer(ctx, query, answer)
		if err != nil {
			return "", fmt.Errorf("reflection: critique round %d: %w", round+1, err)
		}
		log.Printf("[Reflection] round %d quality=%.2f", round+1, c.Quality)

		if c.Quality >= reflectionQualityTarget {
			break
		}

		refined, err := rf.refine(ctx, query, answer, c)
		if err != nil {
			return "", fmt.Errorf("reflection: refine round %d: %w", round+1, err)
		}
		answer = refined
		rf.opts.Observer.Emit(Event{Kind: EventPartialResponse, Strategy: "reflection", Text: answer})
	}

	rf.opts.Observer.Emit(Event{Kind: EventInferenceComplete, Strategy: "reflection", Text: answer})
	return answer, nil
}

// gatherToolContext runs the same classify/execute pass Simple's
// single-tool and multi-tool paths use, so Reflection's draft has access to
// live tool data whenever the query isn't a pure DIRECT_ANSWER.
func (rf *Reflection) gatherToolContext(ctx context.Context, query string) (string, error) {
	analysis := rf.manager.AnalyzeQuery(ctx, query)
	if analysis.Kind == mcp.DirectAnswer {
		return "", nil
	}

	var observations []string
	var plan []toolSelectionResult
	var err error
	if analysis.Kind == mcp.SingleTool {
		plan, err = rf.runSingleTool(ctx, query)
	} else {
		plan, err = rf.runMultiTool(ctx, query)
	}
	if err != nil {
		return "", err
	}
	for _, p := range plan {
		observations = append(observations, p.observation)
	}
	return strings.Join(observations, "\n"), nil
}

// toolSelectionResult pairs a tool name with its rendered observation, used
// only to thread results back from the run*Tool helpers below.
type toolSelectionResult struct {
	name        string
	observation string
}

func (rf *Reflection) runSingleTool(ctx context.Context, query string) ([]toolSelectionResult, error) {
	selections, err := rf.manager.FindSingleStepTools(ctx, query, rf.registry)
	if err != nil || len(selections) == 0 {
		return nil, err
	}
	sel := selections[0]
	rf.opts.Observer.Emit(Event{Kind: EventToolSelection, Strategy: "reflection", Name: sel.Tool.Name(), Args: sel.Parameters})
	result := rf.manager.ExecuteTool(ctx, rf.registry, sel.Tool.Name(), sel.Parameters)
	rf.opts.Observer.Emit(Event{Kind: EventToolExecution, Strategy: "reflection", Name: sel.Tool.Name(), Result: result.Content})
	return []toolSelectionResult{{name: sel.Tool.Name(), observation: formatToolOutput(sel.Tool.Name(), result)}}, nil
}

func (rf *Reflection) runMultiTool(ctx context.Context, query string) ([]toolSelectionResult, error) {
	plan, err := rf.manager.FindMultiStepTools(ctx, query, rf.registry)
	if err != nil || len(plan) == 0 {
		return nil, err
	}
	var priorResults []string
	out := make([]toolSelectionResult, 0, len(plan))
	for _, sel := range plan {
		params := matcher.Substitute(sel.Parameters, priorResults)
		rf.opts.Observer.Emit(Event{Kind: EventToolSelection, Strategy: "reflection", Name: sel.Tool.Name(), Args: params})
		result := rf.manager.ExecuteTool(ctx, rf.registry, sel.Tool.Name(), params)
		rf.opts.Observer.Emit(Event{Kind: EventToolExecution, Strategy: "reflection", Name: sel.Tool.Name(), Result: result.Content})
		priorResults = append(priorResults, result.Content)
		out = append(out, toolSelectionResult{name: sel.Tool.Name(), observation: formatToolOutput(sel.Tool.Name(), result)})
	}
	return out, nil
}

// draft produces the first-pass answer.
func (rf *Reflection) draft(ctx context.Context, query, toolContext string) (string, error) {
	var sb strings.Builder
	sb.WriteString(historyPrefix(rf.opts))
	fmt.Fprintf(&sb, "Question: %s\n", query)
	if toolContext != "" {
		fmt.Fprintf(&sb, "\nTool results:\n%s\n", toolContext)
	}
	sb.WriteString("\nWrite your best answer.")

	resp, err := rf.gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "Draft a clear, direct answer to the user's question."},
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// critiqueAnswer rates the answer on a fixed rubric and returns a numeric
// quality score in [0,1] alongside structured remarks.
func (rf *Reflection) critiqueAnswer(ctx context.Context, query, answer string) (critique, error) {
	prompt := fmt.Sprintf(
		"Question: %s\n\nCandidate answer:\n%s\n\n"+
			"Rate the answer on completeness, accuracy, clarity, and relevance, each in [0,1], "+
			"plus an overall quality score in [0,1]. Respond with ONLY JSON: "+
			`{"completeness":0,"accuracy":0,"clarity":0,"relevance":0,"quality":0,"remarks":"..."}`,
		query, answer,
	)
	resp, err := rf.gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return critique{}, err
	}

	raw := strings.TrimSpace(resp.Text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var c critique
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		// An unparseable critique is treated as "needs another round"
		// rather than aborting the query.
		return critique{Quality: 0, Remarks: resp.Text}, nil
	}
	return c, nil
}

// refine produces an improved answer using the critique's remarks.
func (rf *Reflection) refine(ctx context.Context, query, answer string, c critique) (string, error) {
	prompt := fmt.Sprintf(
		"Question: %s\n\nPrevious answer:\n%s\n\nCritique:\n%s\n\nWrite an improved answer addressing the critique.",
		query, answer, c.Remarks,
	)
	resp, err := rf.gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "Refine the answer to address the critique directly."},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Close releases no resources of its own.
func (rf *Reflection) Close() error { return nil }
