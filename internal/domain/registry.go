package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pocketomega/pocket-omega/internal/llm"
)

// Score pairs a domain name with its relevance score in [0,1] for one query.
type Score struct {
	Name  string
	Value float64
}

// Registry owns the domain catalog and scores queries against it. Reads
// (Score, Domains) take a shared lock; writes (auto-discovery, enable/
// disable wiring done by the caller) take an exclusive lock, matching the
// read-mostly discipline spec.md describes for the tool catalog.
type Registry struct {
	configPath string
	gateway    llm.Gateway // optional; nil disables the LLM phase

	mu      sync.RWMutex
	domains map[string]Definition
}

// NewRegistry loads the domain catalog from configPath. gateway may be nil,
// in which case Score always uses the pattern phase only.
func NewRegistry(configPath string, gateway llm.Gateway) (*Registry, error) {
	defs, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return &Registry{configPath: configPath, gateway: gateway, domains: defs}, nil
}

// SetGateway swaps the LLM used for the scoring phase (e.g. on /llm switch).
func (r *Registry) SetGateway(gateway llm.Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateway = gateway
}

// Domains returns a snapshot of every known domain definition.
func (r *Registry) Domains() map[string]Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Definition, len(r.domains))
	for k, v := range r.domains {
		out[k] = v
	}
	return out
}

// Score ranks every domain against query. It always runs the pattern phase;
// if a gateway is configured, the LLM-phase result replaces it (the two are
// not blended), falling back to the pattern-phase result on any LLM failure.
func (r *Registry) Score(ctx context.Context, query string) []Score {
	r.mu.RLock()
	defs := make(map[string]Definition, len(r.domains))
	for k, v := range r.domains {
		defs[k] = v
	}
	gateway := r.gateway
	r.mu.RUnlock()

	patternScores := scoreByPattern(query, defs)
	if gateway == nil {
		return patternScores
	}

	llmScores, err := r.scoreByLLM(ctx, gateway, query, defs)
	if err != nil {
		log.Printf("[Domain] LLM scoring phase failed, falling back to pattern phase: %v", err)
		return patternScores
	}
	return llmScores
}

// scoreByPattern counts pattern/keyword matches in the normalized query,
// weighted by literal length so longer, more specific matches outrank
// coincidental short-word hits.
func scoreByPattern(query string, defs map[string]Definition) []Score {
	normalized := strings.ToLower(query)
	scores := make([]Score, 0, len(defs))

	for name, def := range defs {
		var weight float64
		for _, p := range def.Patterns {
			p = strings.ToLower(p)
			if p != "" && strings.Contains(normalized, p) {
				weight += float64(len(p))
			}
		}
		for _, k := range def.SemanticKeywords {
			k = strings.ToLower(k)
			if k != "" && strings.Contains(normalized, k) {
				weight += float64(len(k))
			}
		}
		if weight == 0 {
			continue
		}
		scores = append(scores, Score{Name: name, Value: normalizeWeight(weight)})
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].Value > scores[j].Value })
	return scores
}

// normalizeWeight squashes an unbounded match weight into (0,1] with
// diminishing returns, so a single very long literal match doesn't blow
// past the 0.3/0.6 thresholds the caller checks against in a way that
// differs wildly in practice from several shorter matches.
func normalizeWeight(weight float64) float64 {
	v := weight / (weight + 20)
	if v > 1 {
		return 1
	}
	return v
}

type llmDomainScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// scoreByLLM asks the gateway to rate every candidate domain in [0,1] for
// relevance to query, using a compact enumeration prompt.
func (r *Registry) scoreByLLM(ctx context.Context, gateway llm.Gateway, query string, defs map[string]Definition) ([]Score, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Rate how relevant each domain below is to the user query, on a scale from 0.0 (irrelevant) to 1.0 (exact match).\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nDomains:\n", query)
	for _, name := range names {
		def := defs[name]
		fmt.Fprintf(&sb, "- %s: %s\n", name, def.Description)
	}
	sb.WriteString("\nRespond with ONLY a JSON array like [{\"name\":\"<domain>\",\"score\":0.0}, ...], one entry per domain listed above.")

	resp, err := gateway.Generate(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return nil, err
	}

	raw := stripJSONFence(resp.Text)
	var parsed []llmDomainScore
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("domain: parse LLM scores: %w", err)
	}

	scores := make([]Score, 0, len(parsed))
	for _, p := range parsed {
		if _, ok := defs[p.Name]; !ok {
			continue
		}
		v := p.Score
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		scores = append(scores, Score{Name: p.Name, Value: v})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Value > scores[j].Value })
	return scores, nil
}

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if m := jsonFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

type discoveryProposal struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AutoDiscover proposes a domain for a set of tools that arrived without an
// assigned domain: it asks the LLM for a concise name/description, attaches
// the tools to an existing domain on a name collision, or creates and
// persists a new one otherwise.
func (r *Registry) AutoDiscover(ctx context.Context, toolNames []string, toolDescriptions string) (string, error) {
	r.mu.RLock()
	gateway := r.gateway
	r.mu.RUnlock()
	if gateway == nil {
		return "", fmt.Errorf("domain: auto-discovery requires an LLM gateway")
	}

	prompt := fmt.Sprintf(
		"Propose a short, lowercase, hyphenated domain name and one-sentence description "+
			"that groups these tools:\n\n%s\n\n"+
			"Respond with ONLY JSON: {\"name\":\"<domain>\",\"description\":\"<text>\"}",
		toolDescriptions,
	)
	resp, err := gateway.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("domain: auto-discovery LLM call: %w", err)
	}

	var proposal discoveryProposal
	if err := json.Unmarshal([]byte(stripJSONFence(resp.Text)), &proposal); err != nil {
		return "", fmt.Errorf("domain: parse auto-discovery proposal: %w", err)
	}
	if proposal.Name == "" {
		return "", fmt.Errorf("domain: auto-discovery proposal missing name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	def, collided := r.domains[proposal.Name]
	if !collided {
		def = Definition{Name: proposal.Name, Description: proposal.Description}
	}
	def.CommonTools = mergeUnique(def.CommonTools, toolNames)
	r.domains[proposal.Name] = def

	if err := SaveConfig(r.configPath, r.domains); err != nil {
		return "", fmt.Errorf("domain: persist auto-discovery: %w", err)
	}

	if collided {
		log.Printf("[Domain] auto-discovery attached %d tool(s) to existing domain %q", len(toolNames), proposal.Name)
	} else {
		log.Printf("[Domain] auto-discovery created domain %q", proposal.Name)
	}
	return proposal.Name, nil
}

func mergeUnique(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(add))
	for _, v := range existing {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
