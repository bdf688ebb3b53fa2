package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pocketomega/pocket-omega/internal/config"
	"github.com/pocketomega/pocket-omega/internal/domain"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/matcher"
	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// Domain-first filtering thresholds: only domains scoring at or above these
// values have their tools offered to the matcher.
const (
	singleStepDomainThreshold = 0.3
	multiStepDomainThreshold  = 0.6
)

// Manager owns the fleet of MCP server connections plus the Domain
// Registry and Tool Matcher used to pick and parameterize tools for a
// query. State changes are guarded by mu; network I/O always happens
// outside the lock so a slow or hung server cannot block other Manager
// operations (e.g. CloseAll during shutdown).
type Manager struct {
	fleetConfigPath string

	mu               sync.Mutex
	specs            map[string]mcpsvc.ServerSpec
	clients          map[string]*mcpsvc.Client // nil value = per_call (ephemeral)
	serverTools      map[string][]string
	perCallToolInfos map[string][]mcpsvc.Tool

	domains *domain.Registry
	match   *matcher.Matcher
	gateway llm.Gateway
	cache   *selectionCache
}

// NewManager creates a Manager for the given fleet configuration path. No
// connections are established until ConnectAll is called.
func NewManager(fleetConfigPath string, domains *domain.Registry, match *matcher.Matcher, gateway llm.Gateway) *Manager {
	return &Manager{
		fleetConfigPath:  fleetConfigPath,
		specs:            make(map[string]mcpsvc.ServerSpec),
		clients:          make(map[string]*mcpsvc.Client),
		serverTools:      make(map[string][]string),
		perCallToolInfos: make(map[string][]mcpsvc.Tool),
		domains:          domains,
		match:            match,
		gateway:          gateway,
		cache:            newSelectionCache(),
	}
}

// SetGateway swaps the LLM used for classification, matching, and domain
// scoring (e.g. on a /llm switch), and invalidates the selection cache
// since prior cached answers may no longer reflect what this LLM would pick.
func (m *Manager) SetGateway(gateway llm.Gateway) {
	m.mu.Lock()
	m.gateway = gateway
	m.mu.Unlock()
	m.match.SetGateway(gateway)
	m.domains.SetGateway(gateway)
	m.cache.invalidate()
}

// connResult captures the outcome of connecting (or per_call-discovering)
// one server, used to update Manager state under the lock after all
// network I/O completes.
type connResult struct {
	id    string
	spec  mcpsvc.ServerSpec
	cli   *mcpsvc.Client // nil for per_call after discovery
	tools []mcpsvc.Tool
	err   error
}

// ConnectAll loads the fleet config and connects every enabled server in
// parallel, under the caller's context deadline (the global startup
// budget). Failures are logged with a specific diagnostic and do not
// prevent other servers from connecting — the system is explicitly usable
// with zero connected servers.
func (m *Manager) ConnectAll(ctx context.Context) (int, []error) {
	specs, err := config.LoadFleet(m.fleetConfigPath)
	if err != nil {
		return 0, []error{fmt.Errorf("mcp: load fleet config: %w", err)}
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]connResult, len(specs))
	i := 0
	for id, spec := range specs {
		if !spec.Enabled {
			continue
		}
		idx := i
		results[idx] = connResult{id: id, spec: spec}
		i++
		id, spec := id, spec
		g.Go(func() error {
			results[idx] = m.connectOne(gctx, id, spec)
			return nil // per-server errors are reported in the result, not propagated
		})
	}
	_ = g.Wait()
	results = results[:i]

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	connected := 0
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", r.id, r.err))
			log.Printf("[MCP] connect failed: %s: %v", r.id, r.err)
			continue
		}
		m.clients[r.id] = r.cli
		m.specs[r.id] = r.spec
		if r.cli == nil && len(r.tools) > 0 {
			m.perCallToolInfos[r.id] = r.tools
		}
		connected++
		log.Printf("[MCP] connected: %s (%s)", r.id, r.spec.Transport)
	}
	return connected, errs
}

// connectOne connects a single server, discovering and releasing the
// connection immediately for per_call lifecycle servers.
func (m *Manager) connectOne(ctx context.Context, id string, spec mcpsvc.ServerSpec) connResult {
	if spec.Lifecycle == "per_call" {
		tmp := mcpsvc.NewClient(spec)
		if err := tmp.Connect(ctx); err != nil {
			return connResult{id: id, err: err}
		}
		tools, err := tmp.ListTools(ctx)
		_ = tmp.Close()
		if err != nil {
			return connResult{id: id, err: err}
		}
		return connResult{id: id, spec: spec, tools: tools}
	}

	cli := mcpsvc.NewClient(spec)
	if err := cli.Connect(ctx); err != nil {
		return connResult{id: id, err: err}
	}
	return connResult{id: id, spec: spec, cli: cli}
}

// RegisterTools lists the tools from every connected server and registers
// them as MCPToolAdapter instances in registry.
func (m *Manager) RegisterTools(ctx context.Context, registry *tool.Registry) error {
	m.mu.Lock()
	snap := make(map[string]*mcpsvc.Client, len(m.clients))
	specSnap := make(map[string]mcpsvc.ServerSpec, len(m.specs))
	for id, cli := range m.clients {
		snap[id] = cli
		specSnap[id] = m.specs[id]
	}
	m.mu.Unlock()

	type fetchResult struct {
		id    string
		spec  mcpsvc.ServerSpec
		tools []mcpsvc.Tool
		err   error
	}
	results := make([]fetchResult, 0, len(snap))
	for id, cli := range snap {
		spec := specSnap[id]
		if cli == nil {
			m.mu.Lock()
			cached := m.perCallToolInfos[id]
			delete(m.perCallToolInfos, id)
			m.mu.Unlock()
			results = append(results, fetchResult{id: id, spec: spec, tools: cached})
			continue
		}
		tools, err := cli.ListTools(ctx)
		results = append(results, fetchResult{id: id, spec: spec, tools: tools, err: err})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range results {
		if r.err != nil {
			return fmt.Errorf("mcp: list tools for %q: %w", r.id, r.err)
		}
		var names []string
		for _, ti := range r.tools {
			adapter := NewMCPToolAdapter(r.id, ti, m.clients[r.id], r.spec)
			registry.Register(adapter)
			names = append(names, adapter.Name())
		}
		m.serverTools[r.id] = names
		log.Printf("[MCP] registered %d tool(s) from server %q", len(r.tools), r.id)
	}
	return nil
}

// Reload re-reads the fleet config and applies a diff: added servers are
// connected and their tools registered, removed servers have their tools
// unregistered and connections closed, unchanged servers are left alone.
func (m *Manager) Reload(ctx context.Context, registry *tool.Registry) (string, error) {
	// Unlike ConnectAll at startup (where a missing fleet file just means
	// zero configured servers), Reload is an explicit operator action: a
	// missing file here means the operator pointed at the wrong path, and
	// that is worth surfacing rather than silently treating as "no servers".
	if _, statErr := os.Stat(m.fleetConfigPath); os.IsNotExist(statErr) {
		return "", fmt.Errorf("mcp reload: fleet config %q does not exist", m.fleetConfigPath)
	}

	newSpecs, err := config.LoadFleet(m.fleetConfigPath)
	if err != nil {
		return "", fmt.Errorf("mcp reload: load fleet config: %w", err)
	}

	m.mu.Lock()
	var toRemove []string
	var toAdd []mcpsvc.ServerSpec
	unchanged := 0
	for id := range m.specs {
		if _, ok := newSpecs[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	for id, spec := range newSpecs {
		if !spec.Enabled {
			continue
		}
		if _, ok := m.specs[id]; !ok {
			toAdd = append(toAdd, spec)
		} else {
			unchanged++
		}
	}
	m.mu.Unlock()

	removed := 0
	for _, id := range toRemove {
		m.mu.Lock()
		names := m.serverTools[id]
		cli := m.clients[id]
		delete(m.serverTools, id)
		delete(m.clients, id)
		delete(m.specs, id)
		m.mu.Unlock()

		for _, name := range names {
			registry.Unregister(name)
		}
		if cli != nil {
			if err := cli.Close(); err != nil {
				log.Printf("[MCP] close error for %q: %v", id, err)
			}
		}
		removed++
		log.Printf("[MCP] disconnected: %s", id)
	}

	added := 0
	var notices []string
	for _, spec := range toAdd {
		r := m.connectOne(ctx, spec.ID, spec)
		if r.err != nil {
			notices = append(notices, fmt.Sprintf("[WARNING] connect %q: %v", spec.ID, r.err))
			continue
		}
		var names []string
		for _, ti := range r.tools {
			adapter := NewMCPToolAdapter(r.id, ti, r.cli, r.spec)
			registry.Register(adapter)
			names = append(names, adapter.Name())
		}
		m.mu.Lock()
		m.clients[r.id] = r.cli
		m.specs[r.id] = r.spec
		m.serverTools[r.id] = names
		m.mu.Unlock()
		added++
		log.Printf("[MCP] connected: %s (%s), %d tool(s)", r.id, r.spec.Transport, len(r.tools))
	}

	m.cache.invalidate()
	summary := fmt.Sprintf("MCP reload: +%d connected, -%d removed, %d unchanged", added, removed, unchanged)
	if len(notices) > 0 {
		summary += "\n" + strings.Join(notices, "\n")
	}
	return summary, nil
}

// CloseAll terminates every active connection. Safe to call multiple times.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := make(map[string]*mcpsvc.Client, len(m.clients))
	for id, cli := range m.clients {
		clients[id] = cli
		delete(m.clients, id)
	}
	m.mu.Unlock()

	for id, cli := range clients {
		if cli == nil {
			continue
		}
		if err := cli.Close(); err != nil {
			log.Printf("[MCP] close error for %q: %v", id, err)
		}
	}
	log.Printf("[MCP] all connections closed")
}

// ConnectedServers returns a snapshot of every server spec currently known
// to the Manager (connected or per_call-discovered).
func (m *Manager) ConnectedServers() []mcpsvc.ServerSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mcpsvc.ServerSpec, 0, len(m.specs))
	for _, spec := range m.specs {
		out = append(out, spec)
	}
	return out
}

// Domains returns the domain catalog.
func (m *Manager) Domains() map[string]domain.Definition {
	return m.domains.Domains()
}

// candidateTools returns the tools registered under serverIDs, read from
// registry, filtered to only those belonging to one of those servers.
func (m *Manager) candidateTools(registry *tool.Registry, serverIDs map[string]bool) []tool.Tool {
	var out []tool.Tool
	for _, t := range registry.List() {
		id := serverIDFromToolName(t.Name())
		if serverIDs[id] {
			out = append(out, t)
		}
	}
	return out
}

// serverIDFromToolName recovers the server id from an MCPToolAdapter's
// fully-qualified name ("mcp_<server>__<tool>"). Tools not following this
// convention (there are none, since MCP is the sole tool source) return "".
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

// relevantServerIDs returns every server ID whose declared domain scored at
// or above threshold for query.
func (m *Manager) relevantServerIDs(ctx context.Context, query string, threshold float64) map[string]bool {
	scores := m.domains.Score(ctx, query)
	relevant := make(map[string]bool, len(scores))
	for _, s := range scores {
		if s.Value >= threshold {
			relevant[s.Name] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for id, spec := range m.specs {
		if relevant[spec.Domain] {
			out[id] = true
		}
	}
	return out
}

// AnalyzeQuery classifies query into DIRECT_ANSWER, SINGLE_TOOL, or
// MULTI_TOOL based on whether any domain clears the single-step threshold
// and whether more than one relevant domain clears the multi-step
// threshold.
func (m *Manager) AnalyzeQuery(ctx context.Context, query string) QueryAnalysis {
	scores := m.domains.Score(ctx, query)

	var relevant []string
	multiDomain := 0
	for _, s := range scores {
		if s.Value >= singleStepDomainThreshold {
			relevant = append(relevant, s.Name)
		}
		if s.Value >= multiStepDomainThreshold {
			multiDomain++
		}
	}

	if len(relevant) == 0 {
		return QueryAnalysis{Kind: DirectAnswer, Rationale: "no domain scored above the relevance threshold"}
	}
	if multiDomain >= 2 {
		return QueryAnalysis{Kind: MultiTool, Domains: relevant, Rationale: "multiple domains cleared the multi-step threshold"}
	}
	return QueryAnalysis{Kind: SingleTool, Domains: relevant, Rationale: "a single domain cleared the relevance threshold"}
}

// IsMultiStep is a convenience predicate over AnalyzeQuery.
func (m *Manager) IsMultiStep(ctx context.Context, query string) bool {
	return m.AnalyzeQuery(ctx, query).Kind == MultiTool
}

// CandidateTools narrows registry's tools to the domain(s) relevant to
// query, the same domain-first filter findXTools applies before handing a
// shortlist to the matcher. ReAct uses the raw shortlist directly (it makes
// its own per-iteration tool/parameter decisions rather than delegating to
// the matcher), so it is exposed here instead of only internally.
func (m *Manager) CandidateTools(ctx context.Context, query string, registry *tool.Registry) []tool.Tool {
	serverIDs := m.relevantServerIDs(ctx, query, singleStepDomainThreshold)
	return m.candidateTools(registry, serverIDs)
}

// FindSingleStepTools narrows candidates to the most-relevant domain(s)
// above the single-step threshold, then asks the matcher to pick and
// parameterize one of them for query. Results are cached by the full
// query string.
func (m *Manager) FindSingleStepTools(ctx context.Context, query string, registry *tool.Registry) ([]matcher.Selection, error) {
	key := selectionKey(query, false)
	if cached, ok := m.cache.getSelection(key); ok {
		return m.resolveCached(cached, registry), nil
	}

	serverIDs := m.relevantServerIDs(ctx, query, singleStepDomainThreshold)
	candidates := m.candidateTools(registry, serverIDs)
	if len(candidates) == 0 {
		m.cache.putSelection(key, nil)
		return nil, nil
	}

	selection, err := m.match.SelectSingleWithParams(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("mcp: find single-step tools: %w", err)
	}
	if selection == nil {
		m.cache.putSelection(key, nil)
		return nil, nil
	}

	entries := []selectionEntry{{toolName: selection.Tool.Name(), parameters: selection.Parameters}}
	m.cache.putSelection(key, entries)
	return []matcher.Selection{*selection}, nil
}

// FindMultiStepTools narrows candidates to domains above the multi-step
// threshold, then asks the matcher for an ordered plan. Parameter values
// may carry {{RESULT_n}} placeholders the caller substitutes during
// execution.
func (m *Manager) FindMultiStepTools(ctx context.Context, query string, registry *tool.Registry) ([]matcher.Selection, error) {
	key := selectionKey(query, true)
	if cached, ok := m.cache.getSelection(key); ok {
		return m.resolveCached(cached, registry), nil
	}

	serverIDs := m.relevantServerIDs(ctx, query, multiStepDomainThreshold)
	candidates := m.candidateTools(registry, serverIDs)
	if len(candidates) == 0 {
		m.cache.putSelection(key, nil)
		return nil, nil
	}

	plan, err := m.match.PlanMultiStep(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("mcp: find multi-step tools: %w", err)
	}

	entries := make([]selectionEntry, len(plan))
	for i, s := range plan {
		entries[i] = selectionEntry{toolName: s.Tool.Name(), parameters: s.Parameters}
	}
	m.cache.putSelection(key, entries)
	return plan, nil
}

func (m *Manager) resolveCached(entries []selectionEntry, registry *tool.Registry) []matcher.Selection {
	out := make([]matcher.Selection, 0, len(entries))
	for _, e := range entries {
		t, ok := registry.Get(e.toolName)
		if !ok {
			continue
		}
		out = append(out, matcher.Selection{Tool: t, Parameters: e.parameters})
	}
	return out
}

// IsObservationUseful asks the LLM whether observation carries
// query-relevant data, with a small keyword fallback for obvious error or
// generic-success messages when the LLM call itself fails. Results are
// cached by the full observation+query string.
func (m *Manager) IsObservationUseful(ctx context.Context, observation, query string) bool {
	key := utilityKey(observation, query)
	if cached, ok := m.cache.getUtility(key); ok {
		return cached
	}

	useful := m.classifyObservation(ctx, observation, query)
	m.cache.putUtility(key, useful)
	return useful
}

func (m *Manager) classifyObservation(ctx context.Context, observation, query string) bool {
	m.mu.Lock()
	gateway := m.gateway
	m.mu.Unlock()

	if gateway == nil {
		return fallbackObservationUseful(observation)
	}
	prompt := fmt.Sprintf(
		"Query: %s\n\nObservation:\n%s\n\nDoes this observation contain data that directly helps answer the query? Respond with ONLY \"true\" or \"false\".",
		query, observation,
	)
	resp, err := gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		log.Printf("[MCP] isObservationUseful LLM call failed, using fallback: %v", err)
		return fallbackObservationUseful(observation)
	}
	return strings.Contains(strings.ToLower(resp.Text), "true")
}

// fallbackObservationUseful classifies obviously generic or error-shaped
// observations without an LLM call.
func fallbackObservationUseful(observation string) bool {
	lower := strings.ToLower(strings.TrimSpace(observation))
	if lower == "" {
		return false
	}
	errorMarkers := []string{"error", "failed", "not found", "timeout", "unavailable"}
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	genericMarkers := []string{"ok", "done", "success", "completed"}
	for _, marker := range genericMarkers {
		if lower == marker {
			return false
		}
	}
	return true
}

// ExecuteTool runs name (a fully-qualified adapter name) with args by
// looking it up in registry and delegating to tool.Tool.Execute.
func (m *Manager) ExecuteTool(ctx context.Context, registry *tool.Registry, name string, args map[string]any) mcpsvc.ToolExecutionResult {
	t, ok := registry.Get(name)
	if !ok {
		return mcpsvc.ToolExecutionResult{Tool: name, Error: mcpsvc.ErrToolNotFound, Message: fmt.Sprintf("tool %q not registered", name)}
	}

	argsJSON := []byte("{}")
	if len(args) > 0 {
		encoded, err := json.Marshal(args)
		if err != nil {
			return mcpsvc.ToolExecutionResult{Tool: name, Error: mcpsvc.ErrParameterInvalid, Message: err.Error()}
		}
		argsJSON = encoded
	}

	result, err := t.Execute(ctx, argsJSON)
	if err != nil {
		return mcpsvc.ToolExecutionResult{Tool: name, Error: mcpsvc.ErrUnknown, Message: err.Error()}
	}
	if result.Error != "" {
		return mcpsvc.ToolExecutionResult{Tool: name, Error: mcpsvc.ErrUnknown, Message: result.Error}
	}
	return mcpsvc.ToolExecutionResult{Success: true, Tool: name, Content: result.Output}
}

// EnableServer flips a server's Enabled flag, persists the fleet config,
// connects it and registers its tools, and invalidates the selection
// cache — the server is selectable immediately, with no separate Reload
// required.
func (m *Manager) EnableServer(ctx context.Context, registry *tool.Registry, id string) error {
	return m.setEnabled(ctx, registry, id, true)
}

// DisableServer flips a server's Enabled flag, persists the fleet config,
// and synchronously disconnects the client and unregisters its tools so
// the server is excluded from selection immediately, with no separate
// Reload required.
func (m *Manager) DisableServer(ctx context.Context, registry *tool.Registry, id string) error {
	return m.setEnabled(ctx, registry, id, false)
}

// setEnabled updates the persisted fleet config and reconciles live state
// to match: disabling tears down the connection and unregisters the
// server's tools, enabling connects and registers them. Mirrors the
// add/remove halves of Reload, but scoped to a single server.
func (m *Manager) setEnabled(ctx context.Context, registry *tool.Registry, id string, enabled bool) error {
	specs, err := config.LoadFleet(m.fleetConfigPath)
	if err != nil {
		return err
	}
	spec, ok := specs[id]
	if !ok {
		return fmt.Errorf("mcp: unknown server %q", id)
	}
	spec.Enabled = enabled
	specs[id] = spec
	if err := config.SaveFleet(m.fleetConfigPath, specs); err != nil {
		return err
	}

	if !enabled {
		m.mu.Lock()
		names := m.serverTools[id]
		cli := m.clients[id]
		delete(m.serverTools, id)
		delete(m.clients, id)
		delete(m.specs, id)
		delete(m.perCallToolInfos, id)
		m.mu.Unlock()

		for _, name := range names {
			registry.Unregister(name)
		}
		if cli != nil {
			if err := cli.Close(); err != nil {
				log.Printf("[MCP] close error for %q: %v", id, err)
			}
		}
		log.Printf("[MCP] disabled: %s", id)
		m.cache.invalidate()
		return nil
	}

	m.mu.Lock()
	_, alreadyLive := m.specs[id]
	m.mu.Unlock()
	if alreadyLive {
		m.cache.invalidate()
		return nil
	}

	r := m.connectOne(ctx, id, spec)
	if r.err != nil {
		return fmt.Errorf("mcp: enable %q: connect: %w", id, r.err)
	}
	var names []string
	for _, ti := range r.tools {
		adapter := NewMCPToolAdapter(r.id, ti, r.cli, r.spec)
		registry.Register(adapter)
		names = append(names, adapter.Name())
	}
	m.mu.Lock()
	m.clients[r.id] = r.cli
	m.specs[r.id] = r.spec
	m.serverTools[r.id] = names
	if r.cli == nil {
		m.perCallToolInfos[r.id] = r.tools
	}
	m.mu.Unlock()
	log.Printf("[MCP] enabled: %s (%s), %d tool(s)", r.id, r.spec.Transport, len(r.tools))

	m.cache.invalidate()
	return nil
}

// Refresh attempts reconnection of every persistent-lifecycle server
// whose client is not connected — in practice one whose health tracker
// crossed its consecutive-failure limit on list/call requests, which
// clears Client.inner; a single failed request does not. per_call servers reconnect fresh on every
// invocation already and are skipped. Reconnecting in place means
// previously registered adapters (which hold the *mcpsvc.Client pointer,
// not a copy) start working again with no registry changes needed.
func (m *Manager) Refresh(ctx context.Context) (reconnected int, failures []error) {
	m.mu.Lock()
	stale := make(map[string]*mcpsvc.Client, len(m.clients))
	for id, cli := range m.clients {
		if cli != nil && !cli.Connected() {
			stale[id] = cli
		}
	}
	m.mu.Unlock()

	for id, cli := range stale {
		if err := cli.Connect(ctx); err != nil {
			failures = append(failures, fmt.Errorf("mcp refresh: reconnect %q: %w", id, err))
			continue
		}
		reconnected++
		log.Printf("[MCP] reconnected: %s", id)
	}
	if reconnected > 0 {
		m.cache.invalidate()
	}
	return reconnected, failures
}

// AddServer appends a new server spec to the fleet configuration. It does
// not connect automatically; call Reload or ConnectAll to pick it up.
func (m *Manager) AddServer(spec mcpsvc.ServerSpec) error {
	specs, err := config.LoadFleet(m.fleetConfigPath)
	if err != nil {
		return err
	}
	if _, exists := specs[spec.ID]; exists {
		return fmt.Errorf("mcp: server %q already exists", spec.ID)
	}
	specs[spec.ID] = spec
	if err := config.SaveFleet(m.fleetConfigPath, specs); err != nil {
		return err
	}
	m.cache.invalidate()
	return nil
}
