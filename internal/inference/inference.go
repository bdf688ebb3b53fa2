// Package inference implements the three query-answering strategies that
// sit on top of the MCP Manager facade: Simple (classify once, execute,
// synthesize), ReAct (iterative think/act/observe loop), and Reflection
// (draft/critique/refine). All three share the Strategy contract below so
// the caller (a REPL, a CLI command) can swap strategies without changing
// how it drives one.
package inference

import (
	"context"

	"github.com/pocketomega/pocket-omega/internal/session"
)

// Strategy is the contract every inference strategy implements: turn one
// user query into a final answer text, given whatever tools and session
// context it was constructed with.
type Strategy interface {
	ProcessQuery(ctx context.Context, query string) (string, error)
	Close() error
}

// Options is the scheduling-mode bag every strategy constructor accepts:
// iteration budget, debug verbosity, a progress Observer, and the session
// context to fold into its prompts.
type Options struct {
	// MaxIterations bounds ReAct's think/act loop or Reflection's
	// critique/refine rounds. Zero selects the strategy's own default.
	MaxIterations int

	// Debug carries the caller's debug setting. None of the strategies in
	// this package read it; they emit the same observer events either way.
	Debug bool

	// Observer receives progress events. Nil is valid — Emit is then a
	// no-op and the strategy runs exactly as it would with a consumer
	// attached, just without anyone watching.
	Observer *Observer

	// History and Summary are the session's last N turns and its compact
	// summary (session.Store.GetSessionContext), folded into every prompt
	// this strategy sends.
	History []session.Turn
	Summary string
}

const (
	// historyBudgetRunes bounds how much session history text is folded
	// into a single prompt — shared across all three strategies.
	historyBudgetRunes = 4000

	defaultReActMaxIterations = 5
	// reactHardCeiling is immutable policy (spec: "hard ceiling 7"), not a
	// configurable tuning knob — MaxIterations is clamped to it regardless
	// of what the caller requests.
	reactHardCeiling = 7

	defaultReflectionMaxRounds = 3
	reflectionQualityTarget    = 0.85
)

// reactIterationCeiling resolves a requested iteration budget to
// min(requested, 7), defaulting to 5 when unset.
func reactIterationCeiling(requested int) int {
	if requested <= 0 {
		requested = defaultReActMaxIterations
	}
	if requested > reactHardCeiling {
		requested = reactHardCeiling
	}
	return requested
}

// reflectionRoundCeiling resolves a requested critique/refine round budget,
// defaulting to 3 when unset. Unlike ReAct's, this ceiling carries no
// spec-mandated hard cap.
func reflectionRoundCeiling(requested int) int {
	if requested <= 0 {
		return defaultReflectionMaxRounds
	}
	return requested
}

// historyPrefix formats session history as a problem-prefix block, the way
// the teacher's Agent mode prepends conversation context ahead of the
// user's question.
func historyPrefix(opts Options) string {
	return session.ToProblemPrefix(opts.History, historyBudgetRunes, opts.Summary)
}
