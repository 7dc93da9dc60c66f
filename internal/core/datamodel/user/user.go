package user

import "github.com/frahmantamala/billable-dashboard/internal/core/flex"

// Record is a user as the backend returns it from /user/list.
type Record struct {
	UserID                    flex.Int    `json:"user_id"`
	UserName                  flex.String `json:"user_name"`
	UserEmail                 flex.String `json:"user_email"`
	UserNumber                flex.String `json:"user_number"`
	RoleID                    flex.Int    `json:"role_id"`
	RoleName                  flex.String `json:"role_name"`
	DesignationID             flex.Int    `json:"designation_id"`
	Designation               flex.String `json:"designation"`
	TeamID                    flex.Int    `json:"team_id"`
	TeamName                  flex.String `json:"team_name"`
	ProjectManagerID          flex.IDList `json:"project_manager_id"`
	AsstManagerID             flex.IDList `json:"asst_manager_id"`
	QAID                      flex.IDList `json:"qa_id"`
	UserTenure                flex.Float  `json:"user_tenure"`
	IsActive                  flex.Int    `json:"is_active"`
	UserCreationPermission    flex.Int    `json:"user_creation_permission"`
	ProjectCreationPermission flex.Int    `json:"project_creation_permission"`
	ProfilePicture            flex.String `json:"profile_picture"`
}

// PermissionRecord is one row of /permission/user_list.
type PermissionRecord struct {
	UserID                    flex.Int    `json:"user_id"`
	UserName                  flex.String `json:"user_name"`
	UserEmail                 flex.String `json:"user_email"`
	RoleID                    flex.Int    `json:"role_id"`
	UserCreationPermission    flex.Int    `json:"user_creation_permission"`
	ProjectCreationPermission flex.Int    `json:"project_creation_permission"`
}
