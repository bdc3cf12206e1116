// Package identity registers users, verifies credentials, and issues
// bearer tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/gateway"
	"github.com/powerskills-labs/powerskills-go/internal/platform/auth"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrNotFound           = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type Service struct {
	gw     gateway.Gateway
	issuer *auth.Issuer
	now    func() time.Time
}

func New(gw gateway.Gateway, issuer *auth.Issuer) *Service {
	return &Service{
		gw:     gw,
		issuer: issuer,
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, errors.New("email is malformed")
	}
	if len(password) < 8 {
		return domain.User{}, ErrWeakPassword
	}

	existing, err := s.gw.Query(ctx, gateway.CollectionUsers, gateway.Filters{"email": email}, 0, 1)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if len(existing) > 0 {
		return domain.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	now := s.now().UTC()
	user := domain.User{
		UserID:       domain.NewUserID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         auth.RoleFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	rec, err := gateway.EncodeRecord(user)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.gw.Insert(ctx, gateway.CollectionUsers, user.UserID, rec); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	records, err := s.gw.Query(ctx, gateway.CollectionUsers, gateway.Filters{"email": email}, 0, 1)
	if err != nil {
		return Token{}, fmt.Errorf("lookup user: %w", err)
	}
	if len(records) == 0 {
		return Token{}, ErrInvalidCredentials
	}

	var user domain.User
	if err := gateway.DecodeRecord(records[0], &user); err != nil {
		return Token{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Token{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.gw.Update(ctx, gateway.CollectionUsers, user.UserID, gateway.Record{
		"last_login_at": now.Format(time.RFC3339Nano),
	}); err != nil {
		return Token{}, fmt.Errorf("record login: %w", err)
	}

	return s.issueTokens(user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	identity, err := s.issuer.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return Token{}, ErrInvalidRefresh
	}

	user, err := s.GetUser(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Token{}, ErrInvalidRefresh
		}
		return Token{}, err
	}
	return s.issueTokens(user)
}

func (s *Service) GetUser(ctx context.Context, userID string) (domain.User, error) {
	rec, err := s.gw.Get(ctx, gateway.CollectionUsers, userID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	var user domain.User
	if err := gateway.DecodeRecord(rec, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) issueTokens(user domain.User) (Token, error) {
	identity := auth.Identity{
		Subject:     user.UserID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: auth.PermissionsForRole(user.Role),
	}
	access, _, err := s.issuer.IssueAccess(identity)
	if err != nil {
		return Token{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := s.issuer.IssueRefresh(auth.Identity{Subject: user.UserID})
	if err != nil {
		return Token{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
	}, nil
}
