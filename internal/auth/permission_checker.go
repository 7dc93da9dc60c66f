package auth

import "github.com/frahmantamala/billable-dashboard/internal/session"

// Capability names an action gated by role or permission flags.
type Capability string

const (
	CapManageUsers    Capability = "manage_users"
	CapManageProjects Capability = "manage_projects"
	CapSuperAdmin     Capability = "super_admin"
	CapFilterByTeam   Capability = "filter_by_team"
)

type PermissionChecker interface {
	Allows(u *session.User, capability Capability) bool
	HasAny(u *session.User, capabilities ...Capability) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) Allows(u *session.User, capability Capability) bool {
	if u == nil {
		return false
	}
	p := u.Permissions()
	switch capability {
	case CapManageUsers:
		return p.CanManageUsers
	case CapManageProjects:
		return p.CanManageProjects
	case CapSuperAdmin:
		return p.IsSuperAdmin
	case CapFilterByTeam:
		return u.Role.IsPrivileged()
	}
	return false
}

// HasAny is true when no capability is required or any one is allowed.
func (c *DefaultPermissionChecker) HasAny(u *session.User, capabilities ...Capability) bool {
	if u == nil {
		return false
	}
	if len(capabilities) == 0 {
		return true
	}
	for _, capability := range capabilities {
		if c.Allows(u, capability) {
			return true
		}
	}
	return false
}

// Capabilities lists what u may do, for the client to hide actions.
func Capabilities(u *session.User) []Capability {
	checker := DefaultPermissionChecker{}
	var out []Capability
	for _, capability := range []Capability{CapManageUsers, CapManageProjects, CapSuperAdmin, CapFilterByTeam} {
		if checker.Allows(u, capability) {
			out = append(out, capability)
		}
	}
	return out
}
