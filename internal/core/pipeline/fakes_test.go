package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

// memCache is an isolated in-memory cache scope keyed by layer content.
type memCache struct {
	mu       sync.Mutex
	layers   map[string]bool
	availErr error
}

func newMemCache() *memCache { return &memCache{layers: map[string]bool{}} }

func (c *memCache) Type() string         { return "memory" }
func (c *memCache) ReadChannel() string  { return "type=memory" }
func (c *memCache) WriteChannel() string { return "type=memory,mode=max" }

func (c *memCache) Available(context.Context) error { return c.availErr }

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers[key]
}

func (c *memCache) put(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers[key] = true
}

// fakeBuilder derives image content from the recipe only. Cache hits are
// counted but never change the result.
type fakeBuilder struct {
	err      error
	calls    []ports.BuildRequest
	hits     int
	wrongTag bool
}

func (b *fakeBuilder) Build(_ context.Context, req ports.BuildRequest) (domain.BuiltImage, error) {
	b.calls = append(b.calls, req)
	if b.err != nil {
		return domain.BuiltImage{}, b.err
	}
	layer := fmt.Sprintf("%x", sha256.Sum256([]byte(req.ContextDir+"|"+req.Dockerfile)))
	if mc, ok := req.Cache.(*memCache); ok && mc != nil {
		if mc.has(layer) {
			b.hits++
		}
		mc.put(layer)
	}
	tags := req.Tags
	if b.wrongTag {
		tags = domain.TagSet{req.Tags[0]}
	}
	return domain.BuiltImage{ID: "sha256:" + layer, Tags: tags, Labels: req.Labels}, nil
}

type fakePublisher struct {
	loginErr error
	pushErr  error
	logins   []ports.Credential
	pushes   []domain.BuiltImage
}

func (p *fakePublisher) Login(_ context.Context, cred ports.Credential) error {
	p.logins = append(p.logins, cred)
	return p.loginErr
}

func (p *fakePublisher) Push(_ context.Context, img domain.BuiltImage) error {
	p.pushes = append(p.pushes, img)
	return p.pushErr
}
