package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

var errNoCredential = errors.New("no registry credential for a publishing event")

// Invocation is the input of one pipeline run.
type Invocation struct {
	Event      domain.PipelineEvent
	Identity   domain.RepositoryIdentity
	Commit     domain.CommitReference
	ContextDir string
	Dockerfile string
	Labels     domain.LabelSet // extra labels, merged under provenance labels
	ServerURL  string
	Credential *ports.Credential
}

// Result describes a finished run.
type Result struct {
	Image  domain.BuiltImage
	Pushed bool
}

// Pipeline resolves tags, builds and gates publishing, in that order.
type Pipeline struct {
	Registry  string
	Builder   ports.BuilderService
	Publisher ports.Publisher
	Cache     ports.Cache // nil builds without cache
	Log       *slog.Logger
}

// Run executes one single-flow invocation. Every fatal condition aborts
// immediately, no internal step is retried.
func (p *Pipeline) Run(ctx context.Context, inv Invocation) (Result, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	if inv.Event != domain.EventPushToMain && inv.Event != domain.EventPullRequestToMain {
		return Result{}, &domain.Error{Kind: domain.KindUnsupportedEvent, Op: "run", Err: fmt.Errorf("event %q", inv.Event)}
	}

	tags, err := ResolveTags(p.Registry, inv.Identity, inv.Commit)
	if err != nil {
		return Result{}, err
	}
	labels := ResolveLabels(inv.ServerURL, inv.Identity, inv.Commit, inv.Labels)
	log = log.With("event", inv.Event, "commit", string(inv.Commit))

	if inv.Credential != nil {
		if err := p.Publisher.Login(ctx, *inv.Credential); err != nil {
			return Result{}, &domain.Error{Kind: domain.KindPublish, Op: "registry login", Err: err}
		}
	} else if inv.Event.ShouldPublish() {
		return Result{}, &domain.Error{Kind: domain.KindPublish, Op: "registry login", Err: errNoCredential}
	}

	cache := p.Cache
	if cache != nil {
		if err := cache.Available(ctx); err != nil {
			log.Warn("build cache unavailable, building without it", "cache", cache.Type(), "error", err)
			cache = nil
		}
	}

	log.Info("building image", "tags", []string(tags))
	img, err := p.Builder.Build(ctx, ports.BuildRequest{
		ContextDir: inv.ContextDir,
		Dockerfile: inv.Dockerfile,
		Tags:       tags,
		Labels:     labels,
		Cache:      cache,
	})
	if err != nil {
		if _, ok := domain.KindOf(err); !ok {
			err = &domain.Error{Kind: domain.KindBuild, Op: "build", Err: err}
		}
		return Result{}, err
	}
	if img.Tags.Latest() != tags.Latest() || img.Tags.Commit() != tags.Commit() {
		return Result{}, &domain.Error{Kind: domain.KindBuild, Op: "build", Err: fmt.Errorf("builder returned tags %v, want %v", img.Tags, tags)}
	}

	pushed, err := NewGate(p.Publisher, log).Publish(ctx, img, inv.Event)
	if err != nil {
		return Result{Image: img}, err
	}
	return Result{Image: img, Pushed: pushed}, nil
}
