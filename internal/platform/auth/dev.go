package auth

import (
	"context"
	"net/http"
)

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

// DevAuthenticator treats every request as the configured development
// identity. Local use only.
type DevAuthenticator struct {
	identity Identity
}

func NewDevAuthenticator(cfg Config) *DevAuthenticator {
	perms := cfg.DevPermissions
	if len(perms) == 0 {
		perms = PermissionsForRole(cfg.DevRole)
	}
	return &DevAuthenticator{
		identity: Identity{
			Subject:     cfg.DevSubject,
			Email:       cfg.DevEmail,
			Role:        cfg.DevRole,
			Permissions: perms,
		},
	}
}

func (a *DevAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	return a.identity, nil
}
