package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

var cred = &ports.Credential{Registry: "ghcr.io", Username: "ci-bot", Token: "ghs_short_lived"}

func invocation(event domain.PipelineEvent) Invocation {
	return Invocation{
		Event:      event,
		Identity:   "acme/api",
		Commit:     sha,
		ContextDir: "/src",
		Dockerfile: "Dockerfile",
		Credential: cred,
	}
}

func TestRunDirectCommit(t *testing.T) {
	b := &fakeBuilder{}
	pub := &fakePublisher{}
	p := &Pipeline{Builder: b, Publisher: pub, Cache: newMemCache()}

	res, err := p.Run(context.Background(), invocation(domain.EventPushToMain))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Pushed {
		t.Error("expected image to be pushed")
	}
	if len(pub.logins) != 1 || pub.logins[0] != *cred {
		t.Errorf("expected one login with the CI credential, got %v", pub.logins)
	}
	if len(pub.pushes) != 1 {
		t.Fatalf("expected exactly one push, got %d", len(pub.pushes))
	}
	if pub.pushes[0].Tags.Latest() != "ghcr.io/acme/api:latest" || pub.pushes[0].Tags.Commit() != "ghcr.io/acme/api:"+sha {
		t.Errorf("unexpected pushed tags: %v", pub.pushes[0].Tags)
	}
	if res.Image.Labels[LabelRevision] != sha {
		t.Errorf("expected revision label, got %v", res.Image.Labels)
	}
	if b.calls[0].Cache == nil {
		t.Error("expected cache handle passed to builder")
	}
}

func TestRunPullRequestBuildsOnly(t *testing.T) {
	pub := &fakePublisher{}
	p := &Pipeline{Builder: &fakeBuilder{}, Publisher: pub}

	inv := invocation(domain.EventPullRequestToMain)
	inv.Credential = nil
	res, err := p.Run(context.Background(), inv)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Pushed || len(pub.pushes) != 0 {
		t.Error("pull request must never push")
	}
	if res.Image.ID == "" {
		t.Error("expected built image")
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name       string
		inv        func() Invocation
		builder    *fakeBuilder
		publisher  *fakePublisher
		wantKind   domain.ErrorKind
		wantBuilds int
	}{
		{
			name:     "missing identity",
			inv:      func() Invocation { i := invocation(domain.EventPushToMain); i.Identity = ""; return i },
			wantKind: domain.KindInput,
		},
		{
			name:     "missing commit",
			inv:      func() Invocation { i := invocation(domain.EventPushToMain); i.Commit = ""; return i },
			wantKind: domain.KindInput,
		},
		{
			name:     "unsupported event",
			inv:      func() Invocation { return invocation("workflow_dispatch") },
			wantKind: domain.KindUnsupportedEvent,
		},
		{
			name:     "no credential for publishing event",
			inv:      func() Invocation { i := invocation(domain.EventPushToMain); i.Credential = nil; return i },
			wantKind: domain.KindPublish,
		},
		{
			name:      "login rejected",
			inv:       func() Invocation { return invocation(domain.EventPushToMain) },
			publisher: &fakePublisher{loginErr: errors.New("bad token")},
			wantKind:  domain.KindPublish,
		},
		{
			name:       "recipe failure",
			inv:        func() Invocation { return invocation(domain.EventPushToMain) },
			builder:    &fakeBuilder{err: errors.New("RUN make: exit 2")},
			wantKind:   domain.KindBuild,
			wantBuilds: 1,
		},
		{
			name:       "builder drops a tag",
			inv:        func() Invocation { return invocation(domain.EventPushToMain) },
			builder:    &fakeBuilder{wrongTag: true},
			wantKind:   domain.KindBuild,
			wantBuilds: 1,
		},
		{
			name:       "push rejected after successful build",
			inv:        func() Invocation { return invocation(domain.EventPushToMain) },
			publisher:  &fakePublisher{pushErr: errors.New("denied")},
			wantKind:   domain.KindPublish,
			wantBuilds: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.builder
			if b == nil {
				b = &fakeBuilder{}
			}
			pub := tt.publisher
			if pub == nil {
				pub = &fakePublisher{}
			}
			p := &Pipeline{Builder: b, Publisher: pub}

			res, err := p.Run(context.Background(), tt.inv())
			if err == nil {
				t.Fatal("expected error")
			}
			if kind, _ := domain.KindOf(err); kind != tt.wantKind {
				t.Errorf("expected %s error, got %v", tt.wantKind, err)
			}
			if !tt.wantKind.Fatal() {
				t.Errorf("%s errors must be fatal", tt.wantKind)
			}
			if res.Pushed {
				t.Error("failed run must not report a push")
			}
			if len(b.calls) != tt.wantBuilds {
				t.Errorf("expected %d builds, got %d", tt.wantBuilds, len(b.calls))
			}
			if domain.ExitCode(err) == 0 {
				t.Error("failed run must map to a non-zero exit status")
			}
		})
	}
}

func TestRunCacheUnavailableFallsBack(t *testing.T) {
	b := &fakeBuilder{}
	c := newMemCache()
	c.availErr = errors.New("cache service unreachable")
	p := &Pipeline{Builder: b, Publisher: &fakePublisher{}, Cache: c}

	if _, err := p.Run(context.Background(), invocation(domain.EventPushToMain)); err != nil {
		t.Fatalf("cache failure must not fail the run: %v", err)
	}
	if b.calls[0].Cache != nil {
		t.Error("expected build without cache")
	}
}

func TestRunWarmAndColdCacheSameImage(t *testing.T) {
	shared := newMemCache()
	warm := &fakeBuilder{}
	p := &Pipeline{Builder: warm, Publisher: &fakePublisher{}, Cache: shared}

	first, err := p.Run(context.Background(), invocation(domain.EventPushToMain))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := p.Run(context.Background(), invocation(domain.EventPullRequestToMain))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if warm.hits != 1 {
		t.Errorf("expected the second run to hit the shared cache, got %d hits", warm.hits)
	}

	cold := &fakeBuilder{}
	p = &Pipeline{Builder: cold, Publisher: &fakePublisher{}}
	third, err := p.Run(context.Background(), invocation(domain.EventPushToMain))
	if err != nil {
		t.Fatalf("cold run failed: %v", err)
	}

	if first.Image.ID != second.Image.ID || first.Image.ID != third.Image.ID {
		t.Errorf("cache changed image content: %s %s %s", first.Image.ID, second.Image.ID, third.Image.ID)
	}
}
