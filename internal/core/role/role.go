package role

import (
	"strconv"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
)

type Role int

const (
	None Role = iota
	SuperAdmin
	Admin
	ProjectManager
	AssistantManager
	QAAgent
	Agent
)

var names = map[Role]string{
	SuperAdmin:       "Super Admin",
	Admin:            "Admin",
	ProjectManager:   "Project Manager",
	AssistantManager: "Assistant Manager",
	QAAgent:          "QA Agent",
	Agent:            "Agent",
}

// All lists the known roles in id order.
func All() []Role {
	return []Role{SuperAdmin, Admin, ProjectManager, AssistantManager, QAAgent, Agent}
}

func (r Role) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return "Unknown"
}

func (r Role) Valid() bool {
	_, ok := names[r]
	return ok
}

func (r Role) ID() int64 {
	return int64(r)
}

// Parse accepts a numeric id as a string ("6", " 6 ", "6.0"). Anything that
// is not one of the known ids yields None and false.
func Parse(raw string) (Role, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return None, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n != float64(int64(n)) {
		return None, false
	}
	r := Role(int64(n))
	if !r.Valid() {
		return None, false
	}
	return r, true
}

// FromAny resolves a decoded JSON value (number, numeric string or null).
func FromAny(v any) Role {
	id := flex.IntOf(v)
	if !id.Valid {
		return None
	}
	r := Role(id.Value)
	if !r.Valid() {
		return None
	}
	return r
}

// IsPrivileged reports whether the role may filter reports by team.
func (r Role) IsPrivileged() bool {
	switch r {
	case SuperAdmin, Admin, ProjectManager, AssistantManager:
		return true
	}
	return false
}

// Permissions are the booleans derived from a user record.
type Permissions struct {
	CanManageUsers    bool `json:"canManageUsers"`
	CanManageProjects bool `json:"canManageProjects"`
	IsSuperAdmin      bool `json:"isSuperAdmin"`
}

// Derive computes Permissions from the role and the two permission flags
// carried on the user record. Super admins always hold both.
func Derive(r Role, userCreation, projectCreation bool) Permissions {
	super := r == SuperAdmin
	return Permissions{
		CanManageUsers:    super || userCreation,
		CanManageProjects: super || projectCreation,
		IsSuperAdmin:      super,
	}
}
