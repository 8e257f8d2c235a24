package ports

import "context"

// Cache is a shared layer cache scope, injected into the builder.
// The read and write channels always address the same scope.
type Cache interface {
	// Type is the build-system cache type token (gha, registry, local, s3).
	Type() string
	// ReadChannel is the cache-from value consulted at build start.
	ReadChannel() string
	// WriteChannel is the cache-to value written at build end, retaining all layers.
	WriteChannel() string
	// Available checks that the backing store can be reached. A non-nil error
	// means the build proceeds without cache.
	Available(ctx context.Context) error
}
