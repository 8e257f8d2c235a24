// Package entrypoint sequences container startup: model weights are
// materialized first, then the process is handed over to the server.
package entrypoint

import (
	"context"
	"log/slog"
	"time"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

// Orchestrator runs the startup steps in order and stops at the first failure.
type Orchestrator struct {
	Download ports.Command
	Server   ports.Command
	// DownloadTimeout bounds the download step. Zero waits indefinitely.
	DownloadTimeout time.Duration

	Runner   ports.StepRunner
	Launcher ports.Launcher
	Log      *slog.Logger
}

// Run materializes models and then launches the server. With a process
// replacing launcher it only returns on failure. The error carries the failed
// step's exit status, see domain.ExitCode.
func (o *Orchestrator) Run(ctx context.Context) error {
	log := o.Log
	if log == nil {
		log = slog.Default()
	}

	if err := o.materialize(ctx, log); err != nil {
		return err
	}

	log.Info("launching server", "step", domain.StepServerLaunch, "command", o.Server.Path)
	if err := o.Launcher.Exec(o.Server); err != nil {
		return &domain.Error{Kind: domain.KindLaunch, Op: string(domain.StepServerLaunch), Err: err}
	}
	return nil
}

func (o *Orchestrator) materialize(ctx context.Context, log *slog.Logger) error {
	if o.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.DownloadTimeout)
		defer cancel()
	}

	log.Info("materializing models", "step", domain.StepModelMaterialization, "command", o.Download.Path)
	start := time.Now()
	code, err := o.Runner.Run(ctx, o.Download)
	if err != nil {
		return &domain.Error{Kind: domain.KindModel, Op: string(domain.StepModelMaterialization), Err: err}
	}
	if code != 0 {
		return &domain.Error{
			Kind: domain.KindModel,
			Op:   string(domain.StepModelMaterialization),
			Err:  &domain.ExitStatus{Step: domain.StepModelMaterialization, Code: code},
		}
	}
	log.Info("models ready", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
