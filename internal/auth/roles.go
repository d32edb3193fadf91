package auth

import "strings"

// Role represents an operator role carried in JWT claims.
type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(strings.ToLower(value)) {
	case RoleOperator:
		return RoleOperator, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleOperator:
		return 1
	case RoleAdmin:
		return 2
	default:
		return 0
	}
}
