// Package app wires configuration to adapters.
package app

import (
	"fmt"
	"log/slog"

	"github.com/melih/shipyard/internal/adapters/builder"
	"github.com/melih/shipyard/internal/adapters/cache"
	"github.com/melih/shipyard/internal/adapters/docker"
	"github.com/melih/shipyard/internal/config"
	"github.com/melih/shipyard/internal/core/pipeline"
	"github.com/melih/shipyard/internal/core/ports"
)

// NewPipeline builds a Pipeline backed by Docker.
func NewPipeline(cfg config.Pipeline, log *slog.Logger) (*pipeline.Pipeline, error) {
	b, err := builder.New(cfg.Builder, cfg.BuildxBuilder, log)
	if err != nil {
		return nil, err
	}
	pub, err := docker.NewAdapter(log)
	if err != nil {
		return nil, err
	}
	c, err := NewCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Registry:  cfg.Registry,
		Builder:   b,
		Publisher: pub,
		Cache:     c,
		Log:       log,
	}, nil
}

// NewCache returns the configured cache scope, or nil when caching is off.
func NewCache(cfg config.CacheConfig) (ports.Cache, error) {
	if cfg.Type == "none" {
		return nil, nil
	}
	c, err := cache.New(cache.Options{
		Type:     cfg.Type,
		Scope:    cfg.Scope,
		Ref:      cfg.Ref,
		Dir:      cfg.Dir,
		Bucket:   cfg.Bucket,
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
		Insecure: cfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring cache: %w", err)
	}
	return c, nil
}

// Credential returns the CI-issued registry credential, if the CI host supplied one.
func Credential(cfg config.Pipeline) *ports.Credential {
	if cfg.CI.Token == "" {
		return nil
	}
	return &ports.Credential{
		Registry: cfg.Registry,
		Username: cfg.CI.Actor,
		Token:    cfg.CI.Token,
	}
}
