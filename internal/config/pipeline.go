package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPipelinePath is the pipeline config file read from the working directory.
const DefaultPipelinePath = "pipeline.yaml"

// Pipeline configures one build-and-publish invocation.
type Pipeline struct {
	Registry   string            `yaml:"registry"`
	Branch     string            `yaml:"branch"`
	Context    string            `yaml:"context"`
	Dockerfile string            `yaml:"dockerfile"`
	Builder    string            `yaml:"builder"`
	Labels     map[string]string `yaml:"labels"`
	Cache      CacheConfig       `yaml:"cache"`

	// BuildxBuilder names the buildx builder instance. Empty uses the current one.
	BuildxBuilder string `yaml:"buildx_builder"`

	// Repositories allowed to trigger webhook runs, as "owner/name" or "owner".
	Repositories []string `yaml:"repositories"`

	// CI is read from the environment, never from the file.
	CI CIContext `yaml:"-"`
}

// CacheConfig selects the shared build cache scope. Type "none" disables it.
type CacheConfig struct {
	Type     string `yaml:"type"`
	Scope    string `yaml:"scope"`
	Ref      string `yaml:"ref"`
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// CIContext is the identity and commit context supplied by the CI host.
type CIContext struct {
	Repository string
	SHA        string
	EventName  string
	Ref        string
	BaseRef    string
	Actor      string
	Token      string
	ServerURL  string
}

// DefaultPipeline returns a Pipeline with default values.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Registry:   "ghcr.io",
		Branch:     "main",
		Context:    ".",
		Dockerfile: "Dockerfile",
		Builder:    "buildx",
		Cache: CacheConfig{
			Type:  "gha",
			Scope: "buildcache",
		},
	}
}

var (
	validBuilders   = map[string]bool{"buildx": true, "engine": true}
	validCacheTypes = map[string]bool{"gha": true, "registry": true, "local": true, "s3": true, "none": true}
)

// LoadPipeline loads a pipeline.yaml file, if present, and overlays the CI environment.
func LoadPipeline(path string, getenv func(string) string) (Pipeline, error) {
	cfg := DefaultPipeline()
	if getenv == nil {
		getenv = os.Getenv
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading pipeline config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing pipeline config: %w", err)
			}
		}
	}

	// Apply defaults for missing values
	def := DefaultPipeline()
	if cfg.Registry == "" {
		cfg.Registry = def.Registry
	}
	if cfg.Branch == "" {
		cfg.Branch = def.Branch
	}
	if cfg.Context == "" {
		cfg.Context = def.Context
	}
	if cfg.Dockerfile == "" {
		cfg.Dockerfile = def.Dockerfile
	}
	if cfg.Builder == "" {
		cfg.Builder = def.Builder
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = def.Cache.Type
	}
	if cfg.Cache.Scope == "" {
		cfg.Cache.Scope = def.Cache.Scope
	}

	if v := getenv("SHIPYARD_BUILDER"); v != "" {
		cfg.Builder = v
	}
	if v := getenv("SHIPYARD_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := getenv("SHIPYARD_BUILDX_BUILDER"); v != "" {
		cfg.BuildxBuilder = v
	}
	if v := getenv("SHIPYARD_REPOSITORIES"); v != "" {
		cfg.Repositories = nil
		for _, repo := range strings.Split(v, ",") {
			if repo = strings.TrimSpace(repo); repo != "" {
				cfg.Repositories = append(cfg.Repositories, repo)
			}
		}
	}

	if !validBuilders[cfg.Builder] {
		return cfg, fmt.Errorf("unsupported builder: %s", cfg.Builder)
	}
	if !validCacheTypes[cfg.Cache.Type] {
		return cfg, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}

	cfg.CI = CIContext{
		Repository: getenv("GITHUB_REPOSITORY"),
		SHA:        getenv("GITHUB_SHA"),
		EventName:  getenv("GITHUB_EVENT_NAME"),
		Ref:        getenv("GITHUB_REF"),
		BaseRef:    getenv("GITHUB_BASE_REF"),
		Actor:      getenv("GITHUB_ACTOR"),
		Token:      getenv("GITHUB_TOKEN"),
		ServerURL:  getenv("GITHUB_SERVER_URL"),
	}
	return cfg, nil
}
