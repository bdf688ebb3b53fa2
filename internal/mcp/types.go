// Package mcp is the MCP Manager facade: it composes the MCP Service
// (internal/mcpsvc), the Domain Registry, the Tool Matcher, and the Rule
// Engine into the single surface the inference strategies call — "find
// tools for this query", "execute this tool", "is this multi-step".
package mcp

// AnalysisKind classifies how a query should be handled.
type AnalysisKind string

const (
	DirectAnswer AnalysisKind = "DIRECT_ANSWER"
	SingleTool   AnalysisKind = "SINGLE_TOOL"
	MultiTool    AnalysisKind = "MULTI_TOOL"
)

// QueryAnalysis is the outcome of classifying a single query.
type QueryAnalysis struct {
	Kind      AnalysisKind
	Domains   []string
	Rationale string
}
