package cache

import (
	"context"
	"errors"
)

var errNoActionsRuntime = errors.New("actions cache service is not exposed to this job")

// GHA is the GitHub Actions cache service.
type GHA struct {
	scope     string
	lookupEnv func(string) (string, bool)
}

func (g *GHA) Type() string { return TypeGHA }

func (g *GHA) ReadChannel() string {
	return channel(TypeGHA, "scope="+g.scope)
}

func (g *GHA) WriteChannel() string {
	return channel(TypeGHA, "mode=max", "scope="+g.scope)
}

// Available checks that the runner exposed the cache service credentials.
func (g *GHA) Available(context.Context) error {
	if tok, ok := g.lookupEnv("ACTIONS_RUNTIME_TOKEN"); !ok || tok == "" {
		return errNoActionsRuntime
	}
	for _, k := range []string{"ACTIONS_RESULTS_URL", "ACTIONS_CACHE_URL"} {
		if v, ok := g.lookupEnv(k); ok && v != "" {
			return nil
		}
	}
	return errNoActionsRuntime
}
