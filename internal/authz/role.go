package authz

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role identifies one of the closed set of hostel roles. Role values originate
// from already-validated session data and are immutable per request.
type Role string

const (
	RoleStudent          Role = "student"
	RoleWarden           Role = "warden"
	RoleAssociateWarden  Role = "associate_warden"
	RoleAdmin            Role = "admin"
	RoleSecurity         Role = "security"
	RoleSuperAdmin       Role = "super_admin"
	RoleHostelSupervisor Role = "hostel_supervisor"
	RoleHostelGate       Role = "hostel_gate"
	RoleGymkhana         Role = "gymkhana"
)

var allRoles = []Role{
	RoleStudent,
	RoleWarden,
	RoleAssociateWarden,
	RoleAdmin,
	RoleSecurity,
	RoleSuperAdmin,
	RoleHostelSupervisor,
	RoleHostelGate,
	RoleGymkhana,
}

// Roles returns the closed role set.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole normalizes a raw role string and reports whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range allRoles {
		if r == candidate {
			return r, true
		}
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

var displayCaser = cases.Title(language.English)

// DisplayName renders the role for human-facing output, e.g. "Associate Warden".
func (r Role) DisplayName() string {
	return displayCaser.String(strings.ReplaceAll(string(r), "_", " "))
}
