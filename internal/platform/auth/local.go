package auth

import (
	"context"
	"net/http"
	"strings"
)

// LocalAuthenticator verifies bearer access tokens issued by this
// service's own Issuer.
type LocalAuthenticator struct {
	issuer *Issuer
}

func NewLocalAuthenticator(issuer *Issuer) *LocalAuthenticator {
	return &LocalAuthenticator{issuer: issuer}
}

func (a *LocalAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := tokenFromHeader(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	return a.issuer.Verify(raw, TokenTypeAccess)
}

func tokenFromHeader(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
