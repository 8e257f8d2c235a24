// Package cache renders build cache scopes as buildx cache channels.
//
// Every backend derives its read channel (cache-from) and write channel
// (cache-to) from one scope, so any run reuses layers written by any prior run.
// Entries are keyed by layer content, which keeps concurrent writers safe.
package cache

import (
	"fmt"
	"os"
	"strings"

	"github.com/melih/shipyard/internal/core/ports"
)

const (
	TypeGHA      = "gha"
	TypeRegistry = "registry"
	TypeLocal    = "local"
	TypeS3       = "s3"

	DefaultScope = "buildcache"
)

// Options selects and configures a cache backend.
type Options struct {
	Type  string
	Scope string

	Ref string // registry: cache image reference
	Dir string // local: cache directory

	// s3
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Insecure  bool

	// LookupEnv reads the CI environment, defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// New returns the backend named by opts.Type.
func New(opts Options) (ports.Cache, error) {
	if opts.Scope == "" {
		opts.Scope = DefaultScope
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	switch opts.Type {
	case TypeGHA, "":
		return &GHA{scope: opts.Scope, lookupEnv: opts.LookupEnv}, nil
	case TypeRegistry:
		if opts.Ref == "" {
			return nil, fmt.Errorf("registry cache requires a ref")
		}
		return &Registry{ref: opts.Ref}, nil
	case TypeLocal:
		if opts.Dir == "" {
			return nil, fmt.Errorf("local cache requires a dir")
		}
		return &Local{dir: opts.Dir}, nil
	case TypeS3:
		s3, err := NewS3(opts)
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", opts.Type)
	}
}

// channel formats buildx cache attributes in a stable order.
func channel(typ string, attrs ...string) string {
	parts := append([]string{"type=" + typ}, attrs...)
	return strings.Join(parts, ",")
}
