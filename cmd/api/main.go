package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/shipyard/internal/adapters/git"
	"github.com/melih/shipyard/internal/adapters/http"
	"github.com/melih/shipyard/internal/app"
	"github.com/melih/shipyard/internal/config"
	"github.com/melih/shipyard/internal/core/ports"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("SHIPYARD_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPipelinePath
	}
	cfg, err := config.LoadPipeline(configPath, os.Getenv)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 1. Initialize Adapters (Infrastructure)
	p, err := app.NewPipeline(cfg, log)
	if err != nil {
		log.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}

	var cred *ports.Credential
	if token := os.Getenv("SHIPYARD_REGISTRY_TOKEN"); token != "" {
		cred = &ports.Credential{Registry: cfg.Registry, Username: os.Getenv("SHIPYARD_REGISTRY_USER"), Token: token}
	}
	maxConcurrent, _ := strconv.ParseInt(os.Getenv("SHIPYARD_MAX_CONCURRENT"), 10, 64)
	if maxConcurrent < 1 {
		maxConcurrent = 2
	}

	// 2. Initialize HTTP Handlers (Interface Adapters)
	webhooks, err := http.NewWebhookHandler(ctx, http.WebhookOptions{
		Secret:        os.Getenv("SHIPYARD_WEBHOOK_SECRET"),
		Repositories:  cfg.Repositories,
		Branch:        cfg.Branch,
		Context:       cfg.Context,
		Dockerfile:    cfg.Dockerfile,
		Labels:        cfg.Labels,
		ServerURL:     cfg.CI.ServerURL,
		Credential:    cred,
		MaxConcurrent: maxConcurrent,
	}, git.NewSource(log), p, log)
	if err != nil {
		log.Error("refusing to start webhook server", "error", err)
		os.Exit(1)
	}

	// 3. Setup Framework (Fiber)
	server := fiber.New()
	server.Post("/webhooks/github", webhooks.HandleGitHub)
	server.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	go func() {
		<-ctx.Done()
		_ = server.Shutdown()
	}()

	addr := os.Getenv("SHIPYARD_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	log.Info("server starting", "addr", addr)
	if err := server.Listen(addr); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	webhooks.Wait()
}
