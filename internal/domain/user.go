package domain

import (
	"errors"
	"strings"
	"time"
)

type User struct {
	UserID        string     `json:"user_id"`
	Email         string     `json:"email"`
	Name          string     `json:"name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	PasswordHash  string     `json:"password_hash"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

func (u User) Validate() error {
	if strings.TrimSpace(u.UserID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("email is malformed")
	}
	if strings.TrimSpace(u.Role) == "" {
		return errors.New("role is required")
	}
	return nil
}
