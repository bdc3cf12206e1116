package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Entity ids are a short type prefix plus the first 12 hex digits of a
// random UUID, e.g. "op_3f9c1a2b4d5e".
func NewUserID() string { return "usr_" + shortHex() }

func NewSkillID() string { return "sk_" + shortHex() }

func NewPlanID() string { return "op_" + shortHex() }

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
