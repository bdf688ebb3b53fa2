// Package appctx wires the application's long-lived collaborators —
// LLM gateway, tool registry, MCP manager, session store — into one
// explicit struct, rather than scattering os.Getenv calls and package-level
// singletons through cmd/agentcore. Built once at startup and passed down;
// nothing in internal/ reaches back into it.
package appctx

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pocketomega/pocket-omega/internal/domain"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/llm/claude"
	"github.com/pocketomega/pocket-omega/internal/llm/gemini"
	"github.com/pocketomega/pocket-omega/internal/llm/groq"
	"github.com/pocketomega/pocket-omega/internal/llm/openai"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcp"
	"github.com/pocketomega/pocket-omega/internal/rules"
	"github.com/pocketomega/pocket-omega/internal/session"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// Paths collects every config file path the application reads, resolved
// from environment variables with the same fallback-to-default idiom the
// teacher's main.go uses inline for WORKSPACE_DIR/MCP_CONFIG.
type Paths struct {
	FleetConfig  string // MCP_FLEET_CONFIG, default "fleet.json"
	DomainConfig string // DOMAIN_CONFIG, default "domains.json"
	RulesConfig  string // RULES_CONFIG, default "rules.json"
}

// PathsFromEnv resolves Paths from the environment, defaulting each entry
// the way the teacher's main.go defaults MCP_CONFIG to "mcp.json".
func PathsFromEnv() Paths {
	return Paths{
		FleetConfig:  envOr("MCP_FLEET_CONFIG", "fleet.json"),
		DomainConfig: envOr("DOMAIN_CONFIG", "domains.json"),
		RulesConfig:  envOr("RULES_CONFIG", "rules.json"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// AppContext holds every collaborator cmd/agentcore wires together and
// hands to an inference strategy. Construct with New, release with Close.
type AppContext struct {
	Gateway  llm.Gateway
	Registry *tool.Registry
	Domains  *domain.Registry
	Rules    *rules.Engine
	Matcher  *matcher.Matcher
	Manager  *mcp.Manager
	Sessions *session.Store

	Paths Paths
}

// New constructs an AppContext: an LLM gateway for the requested provider,
// an empty tool registry, the domain registry and rule engine loaded from
// paths, a matcher wired to both, an MCP manager over the fleet config, and
// a session store. It does not connect to any MCP server — call
// Manager.ConnectAll on the returned AppContext separately so the caller controls when network I/O
// happens and can report per-server connection errors itself.
func New(ctx context.Context, provider string, paths Paths, sessionTTL time.Duration, sessionMaxTurns int) (*AppContext, error) {
	gateway, err := newGateway(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("appctx: llm gateway: %w", err)
	}

	domains, err := domain.NewRegistry(paths.DomainConfig, gateway)
	if err != nil {
		return nil, fmt.Errorf("appctx: domain registry: %w", err)
	}

	ruleEngine, err := rules.LoadFromFile(paths.RulesConfig)
	if err != nil {
		return nil, fmt.Errorf("appctx: rule engine: %w", err)
	}

	m := matcher.NewMatcher(gateway, ruleEngine)
	mgr := mcp.NewManager(paths.FleetConfig, domains, m, gateway)

	return &AppContext{
		Gateway:  gateway,
		Registry: tool.NewRegistry(),
		Domains:  domains,
		Rules:    ruleEngine,
		Matcher:  m,
		Manager:  mgr,
		Sessions: session.NewStore(sessionTTL, sessionMaxTurns),
		Paths:    paths,
	}, nil
}

// Close releases every collaborator that owns a background resource.
func (a *AppContext) Close() {
	a.Manager.CloseAll()
	a.Sessions.Close()
}

// newGateway constructs the Gateway for the named provider from its
// environment variables, mirroring the teacher's NewClientFromEnv
// constructors one-for-one.
func newGateway(ctx context.Context, provider string) (llm.Gateway, error) {
	switch provider {
	case "", "openai":
		return openai.NewClientFromEnv()
	case "groq":
		return groq.NewClientFromEnv()
	case "claude":
		return claude.NewClientFromEnv()
	case "gemini":
		return gemini.NewClientFromEnv(ctx)
	default:
		return nil, fmt.Errorf("appctx: unknown LLM_PROVIDER %q (want openai, groq, claude, or gemini)", provider)
	}
}
