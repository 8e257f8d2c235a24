package docker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/ports"
)

type fakeRegistry struct {
	mu         sync.Mutex
	loginErr   error
	identity   string
	ids        map[string]string
	pushStream map[string]string
	pushed     []string
	auths      []string
}

func (f *fakeRegistry) RegistryLogin(_ context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error) {
	if f.loginErr != nil {
		return registry.AuthenticateOKBody{}, f.loginErr
	}
	return registry.AuthenticateOKBody{Status: "Login Succeeded", IdentityToken: f.identity}, nil
}

func (f *fakeRegistry) ImagePush(_ context.Context, image string, options types.ImagePushOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	f.pushed = append(f.pushed, image)
	f.auths = append(f.auths, options.RegistryAuth)
	f.mu.Unlock()
	stream, ok := f.pushStream[image]
	if !ok {
		stream = `{"status":"Pushed"}` + "\n"
	}
	return io.NopCloser(strings.NewReader(stream)), nil
}

func (f *fakeRegistry) ImageInspectWithRaw(_ context.Context, ref string) (types.ImageInspect, []byte, error) {
	id, ok := f.ids[ref]
	if !ok {
		return types.ImageInspect{}, nil, errors.New("no such image")
	}
	return types.ImageInspect{ID: id}, nil, nil
}

var (
	img = domain.BuiltImage{
		ID:   "sha256:feed",
		Tags: domain.TagSet{"ghcr.io/acme/api:latest", "ghcr.io/acme/api:0123abcd"},
	}
	cred = ports.Credential{Registry: "ghcr.io", Username: "ci-bot", Token: "ghs_short_lived"}
)

func sameIDs() map[string]string {
	return map[string]string{img.Tags[0]: "sha256:feed", img.Tags[1]: "sha256:feed"}
}

func decodeAuth(t *testing.T, s string) registry.AuthConfig {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("decoding auth: %v", err)
	}
	var auth registry.AuthConfig
	if err := json.Unmarshal(raw, &auth); err != nil {
		t.Fatalf("unmarshal auth: %v", err)
	}
	return auth
}

func TestPushAllTagsWithSession(t *testing.T) {
	fake := &fakeRegistry{ids: sameIDs()}
	a := newAdapter(fake, io.Discard, nil)

	if err := a.Login(context.Background(), cred); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := a.Push(context.Background(), img); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if len(fake.pushed) != 2 || fake.pushed[0] != img.Tags[0] || fake.pushed[1] != img.Tags[1] {
		t.Fatalf("expected both tags pushed in order, got %v", fake.pushed)
	}
	auth := decodeAuth(t, fake.auths[0])
	if auth.Username != "ci-bot" || auth.Password != "ghs_short_lived" || auth.ServerAddress != "ghcr.io" {
		t.Errorf("unexpected auth: %+v", auth)
	}
}

func TestLoginKeepsIdentityToken(t *testing.T) {
	fake := &fakeRegistry{ids: sameIDs(), identity: "refresh-token"}
	a := newAdapter(fake, io.Discard, nil)
	if err := a.Login(context.Background(), cred); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := a.Push(context.Background(), img); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	auth := decodeAuth(t, fake.auths[0])
	if auth.IdentityToken != "refresh-token" || auth.Password != "" {
		t.Errorf("expected identity token auth, got %+v", auth)
	}
}

func TestPushFailures(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeRegistry
		login    bool
		wantPush int
	}{
		{
			name:     "no session",
			fake:     &fakeRegistry{ids: sameIDs()},
			wantPush: 0,
		},
		{
			name:     "tags diverge",
			fake:     &fakeRegistry{ids: map[string]string{img.Tags[0]: "sha256:old", img.Tags[1]: "sha256:feed"}},
			login:    true,
			wantPush: 0,
		},
		{
			name: "registry rejects in stream",
			fake: &fakeRegistry{
				ids:        sameIDs(),
				pushStream: map[string]string{img.Tags[0]: `{"errorDetail":{"message":"denied"},"error":"denied"}` + "\n"},
			},
			login:    true,
			wantPush: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdapter(tt.fake, io.Discard, nil)
			if tt.login {
				if err := a.Login(context.Background(), cred); err != nil {
					t.Fatalf("Login failed: %v", err)
				}
			}
			if err := a.Push(context.Background(), img); err == nil {
				t.Fatal("expected push error")
			}
			if len(tt.fake.pushed) != tt.wantPush {
				t.Errorf("expected %d push calls, got %d", tt.wantPush, len(tt.fake.pushed))
			}
		})
	}
}

func TestLoginFailure(t *testing.T) {
	a := newAdapter(&fakeRegistry{loginErr: errors.New("unauthorized")}, io.Discard, nil)
	if err := a.Login(context.Background(), cred); err == nil {
		t.Fatal("expected login error")
	}
}

func TestConcurrentLoginAndPush(t *testing.T) {
	fake := &fakeRegistry{ids: sameIDs()}
	a := newAdapter(fake, io.Discard, nil)
	if err := a.Login(context.Background(), cred); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	const runs = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*runs)
	for i := 0; i < runs; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- a.Login(context.Background(), cred)
		}()
		go func() {
			defer wg.Done()
			errs <- a.Push(context.Background(), img)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent run failed: %v", err)
		}
	}
	if len(fake.pushed) != 2*runs {
		t.Errorf("expected %d push calls, got %d", 2*runs, len(fake.pushed))
	}
}
