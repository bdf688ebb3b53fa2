package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pocketomega/pocket-omega/internal/mcpsvc"
)

// fleetFile mirrors the top-level structure of the server fleet
// configuration file (spec.md §6): one JSON object keyed by server id.
type fleetFile struct {
	MCPServers map[string]mcpsvc.ServerSpec `json:"mcpServers"`
}

// LoadFleet reads and parses a fleet configuration file. Each ServerSpec's
// ID field is populated from its map key, not from a JSON field — ID is
// excluded from JSON, so the value itself carries no redundant "id" key.
func LoadFleet(path string) (map[string]mcpsvc.ServerSpec, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]mcpsvc.ServerSpec{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read fleet %q: %w", path, err)
	}

	var file fleetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse fleet %q: %w", path, err)
	}
	if file.MCPServers == nil {
		return map[string]mcpsvc.ServerSpec{}, nil
	}

	for key, spec := range file.MCPServers {
		spec.ID = key
		if spec.Transport == "" {
			spec.Transport = "stdio"
		}
		if spec.Lifecycle == "" {
			spec.Lifecycle = "persistent"
		}
		file.MCPServers[key] = spec
	}
	return file.MCPServers, nil
}

// SaveFleet persists the fleet configuration back to path, used after
// enableServer/disableServer/addServer mutate the in-memory set.
func SaveFleet(path string, specs map[string]mcpsvc.ServerSpec) error {
	out, err := json.MarshalIndent(fleetFile{MCPServers: specs}, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal fleet: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: write fleet %q: %w", path, err)
	}
	return nil
}
