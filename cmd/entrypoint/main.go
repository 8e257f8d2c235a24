package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/melih/shipyard/internal/adapters/process"
	"github.com/melih/shipyard/internal/config"
	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/entrypoint"
	"github.com/melih/shipyard/internal/core/ports"
)

const defaultConfig = "/etc/shipyard/entrypoint.toml"

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	path := os.Getenv("SHIPYARD_ENTRYPOINT_CONFIG")
	if path == "" {
		path = defaultConfig
	}
	cfg, err := config.LoadEntrypoint(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		log.Error("failed to load entrypoint config", "error", err)
		os.Exit(1)
	}

	// Arguments given to the container are appended to the server command.
	serverArgs := append([]string{}, cfg.Server.Command[1:]...)
	serverArgs = append(serverArgs, os.Args[1:]...)

	// Signals are not intercepted here: whichever step is running receives them.
	o := &entrypoint.Orchestrator{
		Download:        ports.Command{Path: cfg.Download.Command[0], Args: cfg.Download.Command[1:]},
		Server:          ports.Command{Path: cfg.Server.Command[0], Args: serverArgs},
		DownloadTimeout: cfg.Download.Timeout(),
		Runner:          process.NewRunner(),
		Launcher:        process.NewLauncher(),
		Log:             log,
	}
	if err := o.Run(context.Background()); err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(domain.ExitCode(err))
	}
}
