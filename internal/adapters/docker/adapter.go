package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
	"github.com/moby/term"
)

var errNoSession = errors.New("no registry session, login first")

// registryAPI is the part of the Docker client the publisher uses.
type registryAPI interface {
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
	ImagePush(ctx context.Context, image string, options types.ImagePushOptions) (io.ReadCloser, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
}

// Adapter implements ports.Publisher using Docker SDK
type Adapter struct {
	cli      registryAPI
	out      io.Writer
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[string]string // registry host -> encoded auth
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter(log *slog.Logger) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newAdapter(cli, os.Stdout, log), nil
}

func newAdapter(cli registryAPI, out io.Writer, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{cli: cli, out: out, log: log, sessions: map[string]string{}}
}

// Login validates the short-lived credential against the registry and keeps
// it for subsequent pushes.
func (a *Adapter) Login(ctx context.Context, cred ports.Credential) error {
	auth := registry.AuthConfig{
		Username:      cred.Username,
		Password:      cred.Token,
		ServerAddress: cred.Registry,
	}
	resp, err := a.cli.RegistryLogin(ctx, auth)
	if err != nil {
		return fmt.Errorf("failed to login to %s: %w", cred.Registry, err)
	}
	// Some registries exchange the password for an identity token.
	if resp.IdentityToken != "" {
		auth.Password = ""
		auth.IdentityToken = resp.IdentityToken
	}

	encoded, err := registry.EncodeAuthConfig(auth)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	a.mu.Lock()
	a.sessions[cred.Registry] = encoded
	a.mu.Unlock()
	a.log.Info("registry session established", "registry", cred.Registry, "user", cred.Username)
	return nil
}

// Push pushes every tag of img. Tags are checked to name the same local image
// before anything leaves the host.
func (a *Adapter) Push(ctx context.Context, img domain.BuiltImage) error {
	var id string
	for _, tag := range img.Tags {
		inspect, _, err := a.cli.ImageInspectWithRaw(ctx, tag)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", tag, err)
		}
		if id == "" {
			id = inspect.ID
		}
		if inspect.ID != id {
			return fmt.Errorf("refusing to push %s: resolves to %s, other tags to %s", tag, inspect.ID, id)
		}
	}

	for _, tag := range img.Tags {
		if err := a.pushTag(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) pushTag(ctx context.Context, tag string) error {
	ref, err := name.NewTag(tag, name.StrictValidation)
	if err != nil {
		return fmt.Errorf("invalid tag %s: %w", tag, err)
	}
	a.mu.RLock()
	auth, ok := a.sessions[ref.RegistryStr()]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("pushing %s: %w", tag, errNoSession)
	}

	a.log.Info("pushing tag", "tag", tag)
	reader, err := a.cli.ImagePush(ctx, tag, types.ImagePushOptions{RegistryAuth: auth})
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", tag, err)
	}
	defer reader.Close()

	// Rejections are reported inside the progress stream.
	fd, isTerm := term.GetFdInfo(a.out)
	if err := jsonmessage.DisplayJSONMessagesStream(reader, a.out, fd, isTerm, nil); err != nil {
		return fmt.Errorf("failed to push %s: %w", tag, err)
	}
	return nil
}
