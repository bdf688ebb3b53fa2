// Package rules implements the per-server prompt augmentation hook: before
// any matcher prompt reaches the LLM, rules whose triggers fire append
// guidance text or rewrite prompt fragments. Rules never alter the
// semantics of a tool call — only the prompt guiding the LLM toward it.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

// ParameterReplace rewrites a regex match in the prompt with replacement.
type ParameterReplace struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// Actions is the set of augmentations a rule item may apply once its
// triggers fire.
type Actions struct {
	ContextAdd       string            `json:"context_add,omitempty"`
	ParameterReplace *ParameterReplace `json:"parameter_replace,omitempty"`
}

// Item is a single rule: it fires when any of its triggers/content keywords
// match the current parameter set or prompt text.
type Item struct {
	Triggers        []string `json:"triggers,omitempty"`        // parameter names
	ContentKeywords []string `json:"contentKeywords,omitempty"` // prompt/content substrings
	Rules           Actions  `json:"rules"`
}

// ServerRules groups every rule item that applies to one named server.
type ServerRules struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Engine holds the loaded rule set, keyed by server name.
type Engine struct {
	mu      sync.RWMutex
	byName  map[string][]Item
	compile map[string]*regexp.Regexp // pattern string -> compiled (shared cache)
}

// NewEngine creates an empty Engine. Use Load or LoadFromFile to populate it.
func NewEngine() *Engine {
	return &Engine{byName: make(map[string][]Item), compile: make(map[string]*regexp.Regexp)}
}

// LoadFromFile reads a JSON array of ServerRules from path and replaces the
// engine's rule set. A missing file is not an error — it simply means no
// server carries any rules yet.
func LoadFromFile(path string) (*Engine, error) {
	e := NewEngine()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rules: read %q: %w", path, err)
	}
	var groups []ServerRules
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("rules: parse %q: %w", path, err)
	}
	for _, g := range groups {
		e.byName[g.Name] = g.Items
	}
	return e, nil
}

// EnhancePrompt returns basePrompt augmented by every rule item for
// serverName whose triggers fire against parameters or basePrompt itself.
// Triggers match on parameter names present in parameters or on content
// keywords found (case-insensitively) in basePrompt. An item with neither
// triggers nor content keywords fires for every prompt sent for its server.
// Neither the server name nor a domain name is matched against the prompt.
func (e *Engine) EnhancePrompt(basePrompt, serverName string, parameters map[string]any) string {
	e.mu.RLock()
	items := e.byName[serverName]
	e.mu.RUnlock()
	if len(items) == 0 {
		return basePrompt
	}

	prompt := basePrompt
	lowerPrompt := strings.ToLower(basePrompt)

	for _, item := range items {
		if !e.fires(item, parameters, lowerPrompt, serverName) {
			continue
		}
		if item.Rules.ContextAdd != "" {
			prompt = prompt + "\n" + item.Rules.ContextAdd
			lowerPrompt = strings.ToLower(prompt)
		}
		if pr := item.Rules.ParameterReplace; pr != nil && pr.Pattern != "" {
			re, err := e.compiled(pr.Pattern)
			if err == nil {
				prompt = re.ReplaceAllString(prompt, pr.Replacement)
				lowerPrompt = strings.ToLower(prompt)
			}
		}
	}
	return prompt
}

func (e *Engine) fires(item Item, parameters map[string]any, lowerPrompt, serverName string) bool {
	for _, trigger := range item.Triggers {
		if _, ok := parameters[trigger]; ok {
			return true
		}
	}
	for _, kw := range item.ContentKeywords {
		if kw != "" && strings.Contains(lowerPrompt, strings.ToLower(kw)) {
			return true
		}
	}
	if len(item.Triggers) == 0 && len(item.ContentKeywords) == 0 {
		// A rule item with no triggers at all is scoped purely by server name.
		return true
	}
	_ = serverName
	return false
}

func (e *Engine) compiled(pattern string) (*regexp.Regexp, error) {
	e.mu.RLock()
	if re, ok := e.compile[pattern]; ok {
		e.mu.RUnlock()
		return re, nil
	}
	e.mu.RUnlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rules: invalid parameter_replace pattern %q: %w", pattern, err)
	}
	e.mu.Lock()
	e.compile[pattern] = re
	e.mu.Unlock()
	return re, nil
}
