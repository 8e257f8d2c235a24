package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

var errIncompleteTags = errors.New("image must carry both the alias and the commit tag")

// Gate is the pipeline's single authorization boundary for publishing.
type Gate struct {
	publisher ports.Publisher
	log       *slog.Logger
}

// NewGate creates a gate that pushes through publisher.
func NewGate(publisher ports.Publisher, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{publisher: publisher, log: log}
}

// Publish pushes img if and only if event is a direct commit to the release
// branch. It reports whether a push was attempted and succeeded.
func (g *Gate) Publish(ctx context.Context, img domain.BuiltImage, event domain.PipelineEvent) (bool, error) {
	if !event.ShouldPublish() {
		g.log.Info("image retained locally, not published", "event", event, "tags", []string(img.Tags))
		return false, nil
	}
	if img.Tags.Latest() == "" || img.Tags.Commit() == "" {
		return false, &domain.Error{Kind: domain.KindPublish, Op: "publish", Err: errIncompleteTags}
	}

	g.log.Info("publishing image", "tags", []string(img.Tags))
	if err := g.publisher.Push(ctx, img); err != nil {
		return false, &domain.Error{Kind: domain.KindPublish, Op: "publish", Err: fmt.Errorf("pushing %s: %w", img.Tags.Commit(), err)}
	}
	return true, nil
}
