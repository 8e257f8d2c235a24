package ports

import (
	"context"

	"github.com/melih/shipyard/internal/core/domain"
)

// BuildRequest holds the inputs of one image build.
type BuildRequest struct {
	ContextDir string // root of the build context
	Dockerfile string // recipe path, relative to ContextDir
	Tags       domain.TagSet
	Labels     domain.LabelSet
	Cache      Cache
}

// BuilderService defines operations for building container images from source code.
type BuilderService interface {
	// Build runs the recipe and returns an image bound to every requested tag and label.
	// Any recipe failure is returned as a build error and no image is considered valid.
	Build(ctx context.Context, req BuildRequest) (domain.BuiltImage, error)
}
