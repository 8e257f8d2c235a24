package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/melih/shipyard/internal/adapters/git"
	"github.com/melih/shipyard/internal/app"
	"github.com/melih/shipyard/internal/config"
	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/pipeline"
)

func main() {
	configPath := flag.String("config", config.DefaultPipelinePath, "pipeline config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := run(ctx, *configPath, log)
	if err != nil {
		kind, _ := domain.KindOf(err)
		log.Error("pipeline failed", "kind", kind, "error", err)
	}
	stop()
	os.Exit(domain.ExitCode(err))
}

func run(ctx context.Context, configPath string, log *slog.Logger) error {
	cfg, err := config.LoadPipeline(configPath, os.Getenv)
	if err != nil {
		return &domain.Error{Kind: domain.KindInput, Op: "load config", Err: err}
	}

	event, err := domain.ParseEvent(domain.Trigger{
		Name:    cfg.CI.EventName,
		Ref:     cfg.CI.Ref,
		BaseRef: cfg.CI.BaseRef,
	}, cfg.Branch)
	if err != nil {
		return err
	}

	commit := domain.CommitReference(cfg.CI.SHA)
	if commit == "" {
		commit, err = git.NewSource(log).HeadCommit(ctx, cfg.Context)
		if err != nil {
			return &domain.Error{Kind: domain.KindInput, Op: "resolve commit", Err: err}
		}
	}

	p, err := app.NewPipeline(cfg, log)
	if err != nil {
		return &domain.Error{Kind: domain.KindInput, Op: "setup", Err: err}
	}

	res, err := p.Run(ctx, pipeline.Invocation{
		Event:      event,
		Identity:   domain.RepositoryIdentity(cfg.CI.Repository),
		Commit:     commit,
		ContextDir: cfg.Context,
		Dockerfile: cfg.Dockerfile,
		Labels:     cfg.Labels,
		ServerURL:  cfg.CI.ServerURL,
		Credential: app.Credential(cfg),
	})
	if err != nil {
		return err
	}

	fmt.Printf("image: %s\n", res.Image.ID)
	for _, t := range res.Image.Tags {
		fmt.Printf("tag: %s\n", t)
	}
	fmt.Printf("pushed: %t\n", res.Pushed)
	return nil
}
