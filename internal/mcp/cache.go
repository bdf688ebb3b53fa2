package mcp

import "sync"

// selectionCache memoizes tool-selection results keyed by the full query +
// options string (not a truncated hash, to avoid collision risk across
// unrelated queries), and observation-utility verdicts keyed by the full
// observation + query string. Both caches are cleared wholesale by the
// Manager on LLM provider change (SetGateway), fleet reload, server
// add/enable/disable, and a refresh that reconnects a server, since those
// events can change what a previously-cached answer would be. Changes made
// to the domain catalog through domain.Registry (e.g. AutoDiscover) do not
// clear them.
type selectionCache struct {
	mu         sync.RWMutex
	selections map[string][]selectionEntry
	utilities  map[string]bool
}

type selectionEntry struct {
	toolName   string
	parameters map[string]any
}

func newSelectionCache() *selectionCache {
	return &selectionCache{
		selections: make(map[string][]selectionEntry),
		utilities:  make(map[string]bool),
	}
}

func selectionKey(query string, multiStep bool) string {
	if multiStep {
		return "multi:" + query
	}
	return "single:" + query
}

func (c *selectionCache) getSelection(key string) ([]selectionEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.selections[key]
	return v, ok
}

func (c *selectionCache) putSelection(key string, entries []selectionEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selections[key] = entries
}

func utilityKey(observation, query string) string {
	return observation + "\x00" + query
}

func (c *selectionCache) getUtility(key string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.utilities[key]
	return v, ok
}

func (c *selectionCache) putUtility(key string, useful bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.utilities[key] = useful
}

// invalidate clears every cached entry. Called on LLM provider change,
// domain-catalog change, and server enable/disable.
func (c *selectionCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selections = make(map[string][]selectionEntry)
	c.utilities = make(map[string]bool)
}
