package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

type TokenClaims struct {
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	TokenType   string   `json:"type"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 bearer tokens for local auth mode.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}, nil
}

func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

func (i *Issuer) IssueAccess(identity Identity) (string, time.Time, error) {
	return i.issue(identity, TokenTypeAccess, i.accessTTL)
}

func (i *Issuer) IssueRefresh(identity Identity) (string, time.Time, error) {
	return i.issue(identity, TokenTypeRefresh, i.refreshTTL)
}

func (i *Issuer) issue(identity Identity, tokenType string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(identity.Subject) == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	issuedAt := i.now().UTC()
	expiresAt := issuedAt.Add(ttl)

	claims := TokenClaims{
		Email:       identity.Email,
		Role:        identity.Role,
		Permissions: identity.Permissions,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a signed token and checks that it carries the expected
// type claim. Expired tokens return ErrTokenExpired.
func (i *Issuer) Verify(raw string, expectedType string) (Identity, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return Identity{}, ErrWrongTokenType
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject:     claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}
