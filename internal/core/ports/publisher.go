package ports

import (
	"context"

	"github.com/melih/shipyard/internal/core/domain"
)

// Credential is a short-lived registry token issued to the triggering identity.
type Credential struct {
	Registry string
	Username string
	Token    string
}

// Publisher establishes a registry session and pushes built images.
type Publisher interface {
	Login(ctx context.Context, cred Credential) error
	// Push publishes every tag of the image. It is all or nothing from the
	// caller's view: any rejected tag fails the push.
	Push(ctx context.Context, img domain.BuiltImage) error
}
