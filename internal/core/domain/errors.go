package domain

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a pipeline or startup failure.
type ErrorKind string

const (
	// Missing identity or commit reference. The pipeline never starts a build.
	KindInput            ErrorKind = "input"
	// The build recipe failed. No image is tagged or published.
	KindBuild            ErrorKind = "build"
	// Cache read miss or write failure. Never fatal, only logged.
	KindCache            ErrorKind = "cache"
	// Authentication or registry rejection.
	KindPublish          ErrorKind = "publish"
	// Model download failed at container start.
	KindModel            ErrorKind = "model"
	// Server could not be started.
	KindLaunch           ErrorKind = "launch"
	// Trigger outside push/pull request to the release branch.
	KindUnsupportedEvent ErrorKind = "unsupported_event"
)

// Fatal reports whether errors of this kind abort the run.
func (k ErrorKind) Fatal() bool {
	return k != KindCache
}

// Error is a categorized failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrMissingIdentity and ErrMissingCommit are input errors.
var (
	ErrMissingIdentity = errors.New("repository identity is required")
	ErrMissingCommit   = errors.New("commit reference is required")
)

// KindOf returns the kind of the first categorized error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ExitStatus carries the exit status of an external step that failed.
type ExitStatus struct {
	Step StartupStep
	Code int
}

func (e *ExitStatus) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Step, e.Code)
}

// ExitCode maps err to a process exit status. A failed external step keeps its
// own status; every other failure is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var st *ExitStatus
	if errors.As(err, &st) && st.Code > 0 {
		return st.Code
	}
	return 1
}
