package auth

import "strings"

const (
	RoleFree       = "free"
	RolePersonal   = "personal"
	RoleEnterprise = "enterprise"
	RoleAdmin      = "admin"
)

const (
	PermissionSkillRead            = "skill:read"
	PermissionSkillWrite           = "skill:write"
	PermissionOrchestrationExecute = "orchestration:execute"
	PermissionAnalyticsRead        = "analytics:read"
)

var rolePermissions = map[string][]string{
	RoleFree:       {PermissionSkillRead},
	RolePersonal:   {PermissionSkillRead, PermissionSkillWrite, PermissionOrchestrationExecute},
	RoleEnterprise: {PermissionSkillRead, PermissionSkillWrite, PermissionOrchestrationExecute, PermissionAnalyticsRead},
	RoleAdmin:      {"*"},
}

// PermissionsForRole returns the permission set granted by a role.
// Unknown roles get the free tier's permissions.
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		perms = rolePermissions[RoleFree]
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

func ValidRole(role string) bool {
	_, ok := rolePermissions[strings.ToLower(strings.TrimSpace(role))]
	return ok
}
