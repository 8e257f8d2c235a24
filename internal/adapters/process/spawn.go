package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

// SpawnLauncher emulates process replacement: it starts the command, forwards
// termination signals to it and waits. A non-zero child status is returned as
// *domain.ExitStatus so the caller can exit with it.
type SpawnLauncher struct{}

// Exec runs cmd as the foreground child of this process.
func (SpawnLauncher) Exec(cmd ports.Command) error {
	c := exec.Command(cmd.Path, cmd.Args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = cmd.Env

	if err := c.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", cmd.Path, err)
	}

	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case sig := <-sigs:
				_ = c.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := c.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitStatus(exitErr)
		if code < 0 {
			code = 1
		}
		return &domain.ExitStatus{Step: domain.StepServerLaunch, Code: code}
	}
	return fmt.Errorf("waiting for %s: %w", cmd.Path, err)
}
