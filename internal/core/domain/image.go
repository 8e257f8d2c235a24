package domain

import (
	"maps"
	"slices"
)

// RepositoryIdentity names the image namespace, in owner/repo form.
type RepositoryIdentity string

// CommitReference is the full hash of the triggering commit.
type CommitReference string

// TagSet is an ordered list of fully-qualified image references.
// A resolved TagSet holds exactly the mutable alias first and the commit tag second.
type TagSet []string

// Latest returns the mutable alias reference.
func (t TagSet) Latest() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Commit returns the immutable, commit-addressed reference.
func (t TagSet) Commit() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// LabelSet is descriptive image metadata. It never affects build semantics.
type LabelSet map[string]string

// Keys returns the label keys in sorted order.
func (l LabelSet) Keys() []string {
	return slices.Sorted(maps.Keys(l))
}

// BuiltImage is the transient result of a build within one pipeline run.
type BuiltImage struct {
	ID     string // content ID reported by the builder, may be empty
	Tags   TagSet
	Labels LabelSet
}
