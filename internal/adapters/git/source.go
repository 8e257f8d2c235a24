package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/melih/shipyard/internal/core/domain"
)

// Source implements ports.SourceService with go-git.
type Source struct {
	// Depth limits clone history, zero clones everything.
	Depth    int
	Progress io.Writer
	log      *slog.Logger
}

// NewSource creates a new Source.
func NewSource(log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{Depth: 1, log: log}
}

// HeadCommit returns the full hash of HEAD in the repository containing dir.
func (s *Source) HeadCommit(_ context.Context, dir string) (domain.CommitReference, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return domain.CommitReference(head.Hash().String()), nil
}

// Checkout shallow-clones ref into dir and checks out commit. Shallow history
// may not contain commit when ref has moved on, which is an error.
func (s *Source) Checkout(ctx context.Context, repoURL, ref string, commit domain.CommitReference, dir string) error {
	s.log.Info("cloning source", "url", repoURL, "ref", ref, "dir", dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           repoURL,
		ReferenceName: plumbing.ReferenceName(ref),
		SingleBranch:  true,
		Depth:         s.Depth,
		Progress:      s.Progress,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if commit == "" || head.Hash().String() == string(commit) {
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(string(commit))}); err != nil {
		return fmt.Errorf("commit %s not reachable from %s: %w", commit, ref, err)
	}
	return nil
}
