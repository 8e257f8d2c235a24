package ports

import "context"

// Command is an external executable with its arguments.
type Command struct {
	Path string
	Args []string
	Env  []string // nil inherits the current environment
}

// StepRunner runs a command to completion with the caller's standard streams.
type StepRunner interface {
	// Run returns the command's exit status. The error is non-nil only when the
	// command could not be started or waited for.
	Run(ctx context.Context, cmd Command) (int, error)
}

// Launcher hands the current process over to a command. On success Exec
// does not return.
type Launcher interface {
	Exec(cmd Command) error
}
