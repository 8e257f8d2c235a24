package pipeline

import (
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/melih/shipyard/internal/core/domain"
)

const (
	DefaultRegistry  = "ghcr.io"
	DefaultServerURL = "https://github.com"

	LatestTag = "latest"

	LabelSource   = "org.opencontainers.image.source"
	LabelRevision = "org.opencontainers.image.revision"
	LabelTitle    = "org.opencontainers.image.title"
	LabelURL      = "org.opencontainers.image.url"
)

// ResolveTags returns the alias and commit references for a build, in that order.
// Registry namespaces are case sensitive and must be lower case, so the identity is folded.
func ResolveTags(registry string, id domain.RepositoryIdentity, commit domain.CommitReference) (domain.TagSet, error) {
	repo := strings.ToLower(strings.Trim(strings.TrimSpace(string(id)), "/"))
	rev := strings.TrimSpace(string(commit))
	if repo == "" {
		return nil, &domain.Error{Kind: domain.KindInput, Op: "resolve tags", Err: domain.ErrMissingIdentity}
	}
	if rev == "" {
		return nil, &domain.Error{Kind: domain.KindInput, Op: "resolve tags", Err: domain.ErrMissingCommit}
	}
	if registry == "" {
		registry = DefaultRegistry
	}

	tags := make(domain.TagSet, 0, 2)
	for _, t := range []string{LatestTag, rev} {
		ref := fmt.Sprintf("%s/%s:%s", registry, repo, t)
		if _, err := name.NewTag(ref, name.StrictValidation); err != nil {
			return nil, &domain.Error{Kind: domain.KindInput, Op: "resolve tags", Err: fmt.Errorf("invalid image reference %q: %w", ref, err)}
		}
		tags = append(tags, ref)
	}
	return tags, nil
}

// ResolveLabels derives provenance labels from repository and commit metadata.
// Extra labels are added but never override provenance keys.
func ResolveLabels(serverURL string, id domain.RepositoryIdentity, commit domain.CommitReference, extra domain.LabelSet) domain.LabelSet {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	repo := strings.Trim(strings.TrimSpace(string(id)), "/")
	source := strings.TrimSuffix(serverURL, "/") + "/" + repo

	labels := make(domain.LabelSet, len(extra)+4)
	maps.Copy(labels, extra)
	labels[LabelSource] = source
	labels[LabelURL] = source
	labels[LabelTitle] = path.Base(repo)
	labels[LabelRevision] = strings.TrimSpace(string(commit))
	return labels
}
