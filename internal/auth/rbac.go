package auth

import "strings"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var rank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleEditor):
		return RoleEditor
	default:
		return RoleViewer
	}
}

// ValidRole reports whether role names one of the known roles exactly.
func ValidRole(role string) bool {
	_, ok := rank[Role(role)]
	return ok
}

// Allows reports whether role is at least min. Admins can do everything
// editors can, and editors everything viewers can.
func Allows(role string, min Role) bool {
	return rank[NormalizeRole(role)] >= rank[min]
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}
