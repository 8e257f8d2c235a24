package domain

import "fmt"

// PipelineEvent is the trigger of a single pipeline invocation.
type PipelineEvent string

const (
	// EventPushToMain is a direct commit to the release branch. It builds and publishes.
	EventPushToMain PipelineEvent = "push"
	// EventPullRequestToMain is a pull request targeting the release branch. It only builds.
	EventPullRequestToMain PipelineEvent = "pull_request"
)

// ShouldPublish reports whether a built image may leave the build host.
func (e PipelineEvent) ShouldPublish() bool {
	return e == EventPushToMain
}

// Trigger is the raw CI context an event is derived from.
type Trigger struct {
	Name    string // e.g. "push", "pull_request"
	Ref     string // e.g. "refs/heads/main"
	BaseRef string // target branch of a pull request
}

// ParseEvent maps a CI trigger onto a PipelineEvent. Events other than a push
// to branch or a pull request targeting branch are not handled.
func ParseEvent(t Trigger, branch string) (PipelineEvent, error) {
	switch t.Name {
	case "push":
		if t.Ref == "refs/heads/"+branch {
			return EventPushToMain, nil
		}
		return "", &Error{Kind: KindUnsupportedEvent, Op: "parse event", Err: fmt.Errorf("push to %q is not %q", t.Ref, branch)}
	case "pull_request":
		if t.BaseRef == branch || t.BaseRef == "refs/heads/"+branch {
			return EventPullRequestToMain, nil
		}
		return "", &Error{Kind: KindUnsupportedEvent, Op: "parse event", Err: fmt.Errorf("pull request targets %q, not %q", t.BaseRef, branch)}
	default:
		return "", &Error{Kind: KindUnsupportedEvent, Op: "parse event", Err: fmt.Errorf("event %q", t.Name)}
	}
}
