package mcpsvc

import (
	"fmt"
	"os/exec"
	"runtime"
)

// ProbeCommand checks whether command is resolvable on PATH before a
// subprocess is spawned for it, so a missing binary fails fast as
// ErrCommandNotFound instead of surfacing as an opaque transport error.
//
// On Windows, bare script names (npx, uvx, tsx) are commonly installed as
// ".cmd" shims; exec.LookPath already honors PATHEXT, but some npm global
// installs register only the ".cmd" form under a name exec.LookPath won't
// try unless it is given explicitly, so a ".cmd" fallback is attempted
// there as a second try.
func ProbeCommand(command string) error {
	if command == "" {
		return fmt.Errorf("mcpsvc: empty command")
	}
	if _, err := exec.LookPath(command); err == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		if _, err := exec.LookPath(command + ".cmd"); err == nil {
			return nil
		}
	}
	return fmt.Errorf("mcpsvc: command %q not found on PATH", command)
}
