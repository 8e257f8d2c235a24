package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/melih/shipyard/internal/core/ports"
)

// Runner implements ports.StepRunner with os/exec. The child shares the
// caller's standard streams, so its progress output reaches the container log.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run starts cmd and waits for it.
func (r *Runner) Run(ctx context.Context, cmd ports.Command) (int, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = cmd.Env

	err := c.Run()
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, fmt.Errorf("%s: %w", cmd.Path, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitStatus(exitErr), nil
	}
	return -1, fmt.Errorf("executing %s: %w", cmd.Path, err)
}
