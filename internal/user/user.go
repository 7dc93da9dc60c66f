package user

import (
	"strconv"
	"strings"

	userDatamodel "github.com/frahmantamala/billable-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
)

type User struct {
	ID                        int64      `json:"user_id"`
	Name                      string     `json:"user_name"`
	Email                     string     `json:"user_email"`
	Phone                     string     `json:"user_number,omitempty"`
	Role                      role.Role  `json:"role_id"`
	RoleName                  string     `json:"role_name"`
	DesignationID             int64      `json:"designation_id,omitempty"`
	Designation               string     `json:"designation,omitempty"`
	TeamID                    int64      `json:"team_id,omitempty"`
	TeamName                  string     `json:"team_name,omitempty"`
	ProjectManagerIDs         []int64    `json:"project_manager_id"`
	AsstManagerIDs            []int64    `json:"asst_manager_id"`
	QAIDs                     []int64    `json:"qa_id"`
	Tenure                    flex.Float `json:"user_tenure"`
	IsActive                  bool       `json:"is_active"`
	UserCreationPermission    bool       `json:"user_creation_permission"`
	ProjectCreationPermission bool       `json:"project_creation_permission"`
	ProfilePicture            string     `json:"profile_picture,omitempty"`
}

func (u *User) Permissions() role.Permissions {
	return role.Derive(u.Role, u.UserCreationPermission, u.ProjectCreationPermission)
}

func FromRecord(r *userDatamodel.Record) *User {
	rl := roleOf(r.RoleID)

	roleName := strings.TrimSpace(string(r.RoleName))
	if rl != role.None {
		roleName = rl.String()
	}

	return &User{
		ID:                        r.UserID.Value,
		Name:                      strings.TrimSpace(string(r.UserName)),
		Email:                     strings.TrimSpace(string(r.UserEmail)),
		Phone:                     strings.TrimSpace(string(r.UserNumber)),
		Role:                      rl,
		RoleName:                  roleName,
		DesignationID:             r.DesignationID.Value,
		Designation:               string(r.Designation),
		TeamID:                    r.TeamID.Value,
		TeamName:                  string(r.TeamName),
		ProjectManagerIDs:         ids(r.ProjectManagerID),
		AsstManagerIDs:            ids(r.AsstManagerID),
		QAIDs:                     ids(r.QAID),
		Tenure:                    r.UserTenure,
		IsActive:                  r.IsActive.Value == 1,
		UserCreationPermission:    r.UserCreationPermission.Value == 1,
		ProjectCreationPermission: r.ProjectCreationPermission.Value == 1,
		ProfilePicture:            string(r.ProfilePicture),
	}
}

func roleOf(id flex.Int) role.Role {
	if !id.Valid {
		return role.None
	}
	if r := role.Role(id.Value); r.Valid() {
		return r
	}
	return role.None
}

func ids(l flex.IDList) []int64 {
	if l == nil {
		return []int64{}
	}
	return []int64(l)
}

// PermissionEntry is one row of the permission management table.
type PermissionEntry struct {
	UserID                    int64     `json:"user_id"`
	UserName                  string    `json:"user_name"`
	UserEmail                 string    `json:"user_email"`
	Role                      role.Role `json:"role_id"`
	UserCreationPermission    bool      `json:"user_creation_permission"`
	ProjectCreationPermission bool      `json:"project_creation_permission"`
}

func FromPermissionRecord(r *userDatamodel.PermissionRecord) *PermissionEntry {
	return &PermissionEntry{
		UserID:                    r.UserID.Value,
		UserName:                  string(r.UserName),
		UserEmail:                 string(r.UserEmail),
		Role:                      roleOf(r.RoleID),
		UserCreationPermission:    r.UserCreationPermission.Value == 1,
		ProjectCreationPermission: r.ProjectCreationPermission.Value == 1,
	}
}

// FormFromUser is the snapshot taken when the edit form opens.
func FormFromUser(u *User) Form {
	f := Form{
		Name:              u.Name,
		Email:             u.Email,
		Phone:             u.Phone,
		ProjectManagerIDs: append([]int64{}, u.ProjectManagerIDs...),
		AsstManagerIDs:    append([]int64{}, u.AsstManagerIDs...),
		QAIDs:             append([]int64{}, u.QAIDs...),
	}
	if u.Role != role.None {
		f.RoleID = strconv.FormatInt(u.Role.ID(), 10)
	}
	if u.DesignationID != 0 {
		f.DesignationID = strconv.FormatInt(u.DesignationID, 10)
	}
	if u.TeamID != 0 {
		f.TeamID = strconv.FormatInt(u.TeamID, 10)
	}
	if u.Tenure.Valid {
		f.Tenure = strconv.FormatFloat(u.Tenure.Value, 'f', -1, 64)
	}
	return f
}
