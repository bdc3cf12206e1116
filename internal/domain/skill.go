package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PlatformCoze      = "coze"
	PlatformDify      = "dify"
	PlatformLangchain = "langchain"
	PlatformCursor    = "cursor"
	PlatformGithub    = "github"
	PlatformCustom    = "custom"
)

func ValidPlatform(platform string) bool {
	switch platform {
	case PlatformCoze, PlatformDify, PlatformLangchain, PlatformCursor, PlatformGithub, PlatformCustom:
		return true
	default:
		return false
	}
}

// Pricing models: free, subscription, per_use.
type Pricing struct {
	Type     string   `json:"type"`
	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency"`
}

func DefaultPricing() Pricing {
	return Pricing{Type: "free", Currency: "USD"}
}

type Skill struct {
	SkillID      string    `json:"skill_id"`
	SkillName    string    `json:"skill_name"`
	Description  string    `json:"description,omitempty"`
	Platform     string    `json:"platform"`
	Developer    string    `json:"developer,omitempty"`
	Capabilities []string  `json:"capabilities"`
	Tags         []string  `json:"tags"`
	Pricing      Pricing   `json:"pricing"`
	Rating       float64   `json:"rating"`
	UsageCount   int       `json:"usage_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s Skill) Validate() error {
	if strings.TrimSpace(s.SkillID) == "" {
		return errors.New("skill id is required")
	}
	if strings.TrimSpace(s.SkillName) == "" {
		return errors.New("skill name is required")
	}
	if !ValidPlatform(s.Platform) {
		return fmt.Errorf("unknown platform: %q", s.Platform)
	}
	return nil
}
