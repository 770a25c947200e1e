package auth

// Role represents a staff role.
type Role string

const (
	RoleAttendant  Role = "attendant"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAttendant, RoleSupervisor, RoleManager:
		return Role(value), true
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
	case RoleAttendant:
		return 1
	case RoleSupervisor:
		return 2
	case RoleManager:
		return 3
	default:
		return 0
	}
}
