package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/melih/shipyard/internal/core/domain"
)

func builtImage(t *testing.T) domain.BuiltImage {
	t.Helper()
	tags, err := ResolveTags("", "acme/api", sha)
	if err != nil {
		t.Fatalf("ResolveTags failed: %v", err)
	}
	return domain.BuiltImage{ID: "sha256:feed", Tags: tags}
}

func TestGateNeverPushesPullRequests(t *testing.T) {
	for _, pushErr := range []error{nil, errors.New("denied")} {
		pub := &fakePublisher{pushErr: pushErr}
		pushed, err := NewGate(pub, nil).Publish(context.Background(), builtImage(t), domain.EventPullRequestToMain)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if pushed {
			t.Error("expected no push for pull request")
		}
		if len(pub.pushes) != 0 {
			t.Errorf("expected zero push calls, got %d", len(pub.pushes))
		}
	}
}

func TestGatePushesDirectCommitOnce(t *testing.T) {
	pub := &fakePublisher{}
	img := builtImage(t)

	pushed, err := NewGate(pub, nil).Publish(context.Background(), img, domain.EventPushToMain)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !pushed {
		t.Error("expected push for direct commit")
	}
	if len(pub.pushes) != 1 {
		t.Fatalf("expected exactly one push, got %d", len(pub.pushes))
	}
	got := pub.pushes[0].Tags
	if len(got) != 2 || got[0] != img.Tags[0] || got[1] != img.Tags[1] {
		t.Errorf("push must carry both tags, got %v", got)
	}
}

func TestGatePushFailureIsFatal(t *testing.T) {
	pub := &fakePublisher{pushErr: errors.New("unauthorized")}
	pushed, err := NewGate(pub, nil).Publish(context.Background(), builtImage(t), domain.EventPushToMain)
	if pushed {
		t.Error("failed push must not be reported as pushed")
	}
	if kind, _ := domain.KindOf(err); kind != domain.KindPublish {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestGateRejectsIncompleteTagSet(t *testing.T) {
	pub := &fakePublisher{}
	img := builtImage(t)
	img.Tags = img.Tags[:1]

	_, err := NewGate(pub, nil).Publish(context.Background(), img, domain.EventPushToMain)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(pub.pushes) != 0 {
		t.Error("incomplete tag set must not be pushed")
	}
}
