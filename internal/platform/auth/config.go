package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/powerskills-labs/powerskills-go/internal/platform/env"
)

type Mode string

const (
	ModeLocal    Mode = "local"
	ModeOIDC     Mode = "oidc"
	ModeDev      Mode = "dev"
	ModeDisabled Mode = "disabled"
)

type Config struct {
	Mode Mode

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RolesClaim string
	EmailClaim string

	OIDCIssuerURL string
	OIDCClientID  string

	DevSubject     string
	DevEmail       string
	DevRole        string
	DevPermissions []string
}

func ConfigFromEnv() (Config, error) {
	modeRaw := strings.ToLower(strings.TrimSpace(env.String("AUTH_MODE", string(ModeLocal))))
	var mode Mode
	switch modeRaw {
	case string(ModeLocal):
		mode = ModeLocal
	case string(ModeOIDC):
		mode = ModeOIDC
	case string(ModeDev):
		mode = ModeDev
	case string(ModeDisabled):
		mode = ModeDisabled
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be one of: local, oidc, dev, disabled (got %q)", modeRaw)
	}

	accessTTL, err := env.Duration("AUTH_ACCESS_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := env.Duration("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Mode:            mode,
		JWTSecret:       env.String("AUTH_JWT_SECRET", ""),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		RolesClaim:      env.String("AUTH_ROLES_CLAIM", "roles"),
		EmailClaim:      env.String("AUTH_EMAIL_CLAIM", "email"),
		OIDCIssuerURL:   env.String("OIDC_ISSUER_URL", ""),
		OIDCClientID:    env.String("OIDC_CLIENT_ID", ""),
		DevSubject:      env.String("DEV_AUTH_SUBJECT", "dev-user"),
		DevEmail:        env.String("DEV_AUTH_EMAIL", "dev-user@example.local"),
		DevRole:         env.String("DEV_AUTH_ROLE", "admin"),
		DevPermissions:  env.Strings("DEV_AUTH_PERMISSIONS", []string{"*"}),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(string(c.Mode)) == "" {
		return errors.New("AUTH_MODE is required")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("AUTH_ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return errors.New("AUTH_REFRESH_TOKEN_TTL must be positive")
	}

	switch c.Mode {
	case ModeLocal:
		if strings.TrimSpace(c.JWTSecret) == "" {
			return errors.New("AUTH_JWT_SECRET is required when AUTH_MODE=local")
		}
	case ModeOIDC:
		if strings.TrimSpace(c.OIDCIssuerURL) == "" {
			return errors.New("OIDC_ISSUER_URL is required when AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.OIDCClientID) == "" {
			return errors.New("OIDC_CLIENT_ID is required when AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.RolesClaim) == "" {
			return errors.New("AUTH_ROLES_CLAIM is required when AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.EmailClaim) == "" {
			return errors.New("AUTH_EMAIL_CLAIM is required when AUTH_MODE=oidc")
		}
	case ModeDev:
		if strings.TrimSpace(c.DevSubject) == "" {
			return errors.New("DEV_AUTH_SUBJECT is required when AUTH_MODE=dev")
		}
		if strings.TrimSpace(c.DevRole) == "" {
			return errors.New("DEV_AUTH_ROLE is required when AUTH_MODE=dev")
		}
	case ModeDisabled:
	default:
		return fmt.Errorf("unsupported auth mode: %q", c.Mode)
	}

	return nil
}
