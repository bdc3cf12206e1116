package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Identity struct {
	Subject     string
	Email       string
	Role        string
	Permissions []string
}

// Allows reports whether the identity carries the permission. A stored
// "*" grants everything.
func (i Identity) Allows(permission string) bool {
	for _, p := range i.Permissions {
		if p == "*" || p == permission {
			return true
		}
	}
	return false
}

type ctxKeyIdentity struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}
