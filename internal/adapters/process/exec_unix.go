//go:build unix

package process

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/melih/shipyard/internal/core/ports"
)

// ExecLauncher replaces the current process image with the command. The
// server inherits the pid, standard streams and signal disposition.
type ExecLauncher struct{}

// NewLauncher returns the platform's process hand-off.
func NewLauncher() ports.Launcher {
	return ExecLauncher{}
}

// Exec only returns if the replacement could not happen.
func (ExecLauncher) Exec(cmd ports.Command) error {
	path, err := exec.LookPath(cmd.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", cmd.Path, err)
	}
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	argv := append([]string{cmd.Path}, cmd.Args...)
	if err := syscall.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// exitStatus follows the shell convention of 128+signo for a child killed by
// a signal.
func exitStatus(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
