// Package builder implements ports.BuilderService on top of Docker.
package builder

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/melih/shipyard/internal/core/ports"
)

const (
	KindBuildx = "buildx"
	KindEngine = "engine"
)

// New returns the builder backend named by kind. instance selects the buildx
// builder instance and is ignored by the engine backend.
func New(kind, instance string, log *slog.Logger) (ports.BuilderService, error) {
	switch kind {
	case KindBuildx, "":
		b := NewBuildx(log)
		b.Instance = instance
		return b, nil
	case KindEngine:
		return NewEngine(log)
	default:
		return nil, fmt.Errorf("unsupported builder: %s", kind)
	}
}

// recipePath resolves the Dockerfile against the build context.
func recipePath(req ports.BuildRequest) string {
	df := req.Dockerfile
	if df == "" {
		df = "Dockerfile"
	}
	if filepath.IsAbs(df) {
		return df
	}
	return filepath.Join(req.ContextDir, df)
}

// channelAttrs splits a cache channel such as "type=registry,ref=x" into its attributes.
func channelAttrs(ch string) map[string]string {
	attrs := map[string]string{}
	for _, kv := range strings.Split(ch, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			attrs[k] = v
		}
	}
	return attrs
}
