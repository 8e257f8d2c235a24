package ports

import (
	"context"

	"github.com/melih/shipyard/internal/core/domain"
)

// SourceService reads commit context from a source checkout.
type SourceService interface {
	// HeadCommit returns the commit checked out in dir.
	HeadCommit(ctx context.Context, dir string) (domain.CommitReference, error)
	// Checkout clones ref of repoURL into dir and verifies HEAD is commit.
	Checkout(ctx context.Context, repoURL, ref string, commit domain.CommitReference, dir string) error
}
