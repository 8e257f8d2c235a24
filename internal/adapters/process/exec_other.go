//go:build !unix

package process

import (
	"os/exec"

	"github.com/melih/shipyard/internal/core/ports"
)

// NewLauncher returns the platform's process hand-off. Without execve the
// server runs as a supervised child.
func NewLauncher() ports.Launcher {
	return SpawnLauncher{}
}

func exitStatus(exitErr *exec.ExitError) int {
	return exitErr.ExitCode()
}
