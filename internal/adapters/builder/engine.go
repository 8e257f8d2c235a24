package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/melih/shipyard/internal/adapters/cache"
	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
	"github.com/moby/term"
)

// engineAPI is the part of the Docker client the engine builder uses.
type engineAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
}

// Engine builds through the Docker Engine API. The classic builder can only
// seed from a registry cache image and cannot export cache.
type Engine struct {
	cli engineAPI
	out io.Writer
	log *slog.Logger
}

// NewEngine creates an engine builder from the Docker environment.
func NewEngine(log *slog.Logger) (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newEngine(cli, os.Stdout, log), nil
}

func newEngine(cli engineAPI, out io.Writer, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cli: cli, out: out, log: log}
}

// Build tars the context, builds it and checks that every tag names the same image.
func (e *Engine) Build(ctx context.Context, req ports.BuildRequest) (domain.BuiltImage, error) {
	tar, err := archive.TarWithOptions(req.ContextDir, &archive.TarOptions{})
	if err != nil {
		return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "build context", Err: err}
	}
	defer tar.Close()

	dockerfile := req.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	if filepath.IsAbs(dockerfile) {
		rel, err := filepath.Rel(req.ContextDir, dockerfile)
		if err != nil {
			return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "build context", Err: err}
		}
		dockerfile = rel
	}

	resp, err := e.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string(req.Tags),
		Labels:     req.Labels,
		Dockerfile: filepath.ToSlash(dockerfile),
		CacheFrom:  e.cacheFrom(req.Cache),
		Remove:     true,
	})
	if err != nil {
		return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "image build", Err: err}
	}
	defer resp.Body.Close()

	var id string
	fd, isTerm := term.GetFdInfo(e.out)
	aux := func(msg jsonmessage.JSONMessage) {
		var result types.BuildResult
		if msg.Aux != nil && json.Unmarshal(*msg.Aux, &result) == nil && result.ID != "" {
			id = result.ID
		}
	}
	// The body must be read to the end, build errors arrive inside the stream.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, e.out, fd, isTerm, aux); err != nil {
		return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "image build", Err: err}
	}

	for _, tag := range req.Tags {
		inspect, _, err := e.cli.ImageInspectWithRaw(ctx, tag)
		if err != nil {
			return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "image inspect", Err: err}
		}
		if id == "" {
			id = inspect.ID
		}
		if inspect.ID != id {
			return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "image inspect", Err: fmt.Errorf("tag %s resolves to %s, want %s", tag, inspect.ID, id)}
		}
	}

	return domain.BuiltImage{ID: id, Tags: req.Tags, Labels: req.Labels}, nil
}

func (e *Engine) cacheFrom(c ports.Cache) []string {
	if c == nil {
		return nil
	}
	e.log.Warn("engine builder cannot export build cache, cache write skipped", "cache", c.Type())
	if c.Type() != cache.TypeRegistry {
		e.log.Warn("engine builder only reads registry caches, building without cache", "cache", c.Type())
		return nil
	}
	if ref := channelAttrs(c.ReadChannel())["ref"]; ref != "" {
		return []string{ref}
	}
	return nil
}
