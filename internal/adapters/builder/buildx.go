package builder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

// Buildx builds with the docker buildx CLI, which understands every cache
// channel type. The image is loaded into the local engine.
type Buildx struct {
	Binary   string
	Instance string // buildx builder name, empty for the current builder
	Stdout   io.Writer
	Stderr   io.Writer
	log      *slog.Logger
}

// driverDocker is the default buildx driver, which cannot export cache.
const driverDocker = "docker"

// NewBuildx creates a buildx builder that streams progress to the process output.
func NewBuildx(log *slog.Logger) *Buildx {
	if log == nil {
		log = slog.Default()
	}
	return &Buildx{Binary: "docker", Stdout: os.Stdout, Stderr: os.Stderr, log: log}
}

// Build runs `docker buildx build` and returns the loaded image.
func (b *Buildx) Build(ctx context.Context, req ports.BuildRequest) (domain.BuiltImage, error) {
	tmpDir, err := os.MkdirTemp("", "shipyard-iid-*")
	if err != nil {
		return domain.BuiltImage{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	iidFile := filepath.Join(tmpDir, "iid")

	export := req.Cache != nil && b.canExportCache(ctx)
	args := b.args(req, iidFile, export)
	b.log.Debug("running buildx", "args", args)

	cmd := exec.CommandContext(ctx, b.Binary, args...)
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr
	if err := cmd.Run(); err != nil {
		return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "buildx build", Err: err}
	}

	iid, err := os.ReadFile(iidFile)
	if err != nil {
		return domain.BuiltImage{}, &domain.Error{Kind: domain.KindBuild, Op: "buildx build", Err: fmt.Errorf("reading image id: %w", err)}
	}

	return domain.BuiltImage{
		ID:     strings.TrimSpace(string(iid)),
		Tags:   req.Tags,
		Labels: req.Labels,
	}, nil
}

// canExportCache reports whether the selected builder's driver supports cache
// export. Unsupported export would fail the whole build even with ignore-error.
func (b *Buildx) canExportCache(ctx context.Context) bool {
	driver, err := b.driver(ctx)
	if err != nil {
		b.log.Warn("cache export disabled, cannot inspect buildx builder", "builder", b.Instance, "error", err)
		return false
	}
	if driver == driverDocker {
		b.log.Warn("cache export disabled, builder driver does not support it", "builder", b.Instance, "driver", driver)
		return false
	}
	return true
}

// driver returns the Driver field of `docker buildx inspect`.
func (b *Buildx) driver(ctx context.Context) (string, error) {
	args := []string{"buildx", "inspect"}
	if b.Instance != "" {
		args = append(args, b.Instance)
	}
	out, err := exec.CommandContext(ctx, b.Binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("buildx inspect: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "Driver:"); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("buildx inspect: no driver reported")
}

func (b *Buildx) args(req ports.BuildRequest, iidFile string, exportCache bool) []string {
	args := []string{"buildx", "build"}
	if b.Instance != "" {
		args = append(args, "--builder", b.Instance)
	}
	args = append(args, "--file", recipePath(req))
	for _, t := range req.Tags {
		args = append(args, "--tag", t)
	}
	for _, k := range req.Labels.Keys() {
		args = append(args, "--label", k+"="+req.Labels[k])
	}
	if req.Cache != nil {
		args = append(args, "--cache-from", req.Cache.ReadChannel())
	}
	if req.Cache != nil && exportCache {
		// A failed cache export must not fail the build.
		args = append(args, "--cache-to", req.Cache.WriteChannel()+",ignore-error=true")
	}
	args = append(args, "--load", "--iidfile", iidFile, req.ContextDir)
	return args
}
