// Command agentcore wires the MCP fleet manager, domain registry, tool
// matcher, and an inference strategy together and answers one query. It is
// not the REPL — the interactive front-end (line reading, slash commands,
// cosmetic formatting) is an external collaborator that would drive this
// same core through pkg/appctx and internal/inference in a real deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pocketomega/pocket-omega/internal/config"
	"github.com/pocketomega/pocket-omega/internal/inference"
	"github.com/pocketomega/pocket-omega/internal/mcp"
	"github.com/pocketomega/pocket-omega/pkg/appctx"
)

// Exit codes per the CLI surface contract: 0 normal, 1 configuration error,
// 2 unhandled error.
const (
	exitOK     = 0
	exitConfig = 1
	exitError  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadEnv()

	provider := flag.String("llm", envOr("LLM_PROVIDER", "openai"), "LLM provider: openai, groq, claude, gemini")
	strategyName := flag.String("strategy", envOr("INFERENCE_STRATEGY", "simple"), "inference strategy: simple, react, reflection")
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: agentcore [-llm provider] [-strategy name] <query>")
		return exitConfig
	}

	sessionTTL := envDuration("SESSION_TTL_MINUTES", 30*time.Minute)
	sessionMaxTurns := envInt("SESSION_MAX_TURNS", 10)

	ctx := context.Background()
	app, err := appctx.New(ctx, *provider, appctx.PathsFromEnv(), sessionTTL, sessionMaxTurns)
	if err != nil {
		log.Printf("[agentcore] setup: %v", err)
		return exitConfig
	}
	defer app.Close()
	fmt.Printf("[agentcore] LLM: %s\n", app.Gateway.Name())

	// Registered unconditionally, like the teacher's mcp_reload, so the
	// agent can recover from a fleet that fails to connect at startup.
	app.Registry.Register(mcp.NewReloadTool(app.Manager, app.Registry))
	app.Registry.Register(mcp.NewRefreshTool(app.Manager))

	n, connErrs := app.Manager.ConnectAll(ctx)
	for _, e := range connErrs {
		log.Printf("[agentcore] MCP connect: %v", e)
	}
	if n > 0 {
		if err := app.Manager.RegisterTools(ctx, app.Registry); err != nil {
			log.Printf("[agentcore] MCP register tools: %v", err)
		}
	}
	fmt.Printf("[agentcore] MCP: %d server(s) connected, %d tool(s) registered\n", n, len(app.Registry.List()))

	strategy, err := buildStrategy(*strategyName, app)
	if err != nil {
		log.Printf("[agentcore] strategy: %v", err)
		return exitConfig
	}
	defer strategy.Close()

	answer, err := strategy.ProcessQuery(ctx, query)
	if err != nil {
		log.Printf("[agentcore] query failed: %v", err)
		return exitError
	}

	fmt.Println(answer)
	return exitOK
}

// buildStrategy constructs the named inference.Strategy over app's shared
// collaborators. Observer/History/Debug are left at Options' zero values —
// a REPL wiring this core for real would populate them per-session.
func buildStrategy(name string, app *appctx.AppContext) (inference.Strategy, error) {
	opts := inference.Options{}
	switch name {
	case "simple":
		return inference.NewSimple(app.Manager, app.Registry, app.Gateway, opts), nil
	case "react":
		return inference.NewReact(app.Manager, app.Registry, app.Gateway, opts), nil
	case "reflection":
		return inference.NewReflection(app.Manager, app.Registry, app.Gateway, opts), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want simple, react, or reflection)", name)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[agentcore] invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[agentcore] invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return time.Duration(n) * time.Minute
}
