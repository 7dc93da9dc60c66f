package user

import (
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Form field keys, shared by validation messages and the outgoing payload.
const (
	FieldName              = "user_name"
	FieldEmail             = "user_email"
	FieldPhone             = "user_number"
	FieldPassword          = "user_password"
	FieldRoleID            = "role_id"
	FieldDesignationID     = "designation_id"
	FieldTeamID            = "team_id"
	FieldProjectManagerIDs = "project_manager_id"
	FieldAsstManagerIDs    = "asst_manager_id"
	FieldQAIDs             = "qa_id"
	FieldTenure            = "user_tenure"
	FieldUserID            = "user_id"
	FieldIsActive          = "is_active"
	FieldProfilePicture    = "profile_picture"
)

// Form is the create/edit form as the user types it. Scalars stay strings
// until the payload is built.
type Form struct {
	Name              string      `json:"user_name"`
	Email             string      `json:"user_email"`
	Phone             string      `json:"user_number"`
	Password          string      `json:"user_password"`
	RoleID            string      `json:"role_id"`
	DesignationID     string      `json:"designation_id"`
	TeamID            string      `json:"team_id"`
	ProjectManagerIDs flex.IDList `json:"project_manager_id"`
	AsstManagerIDs    flex.IDList `json:"asst_manager_id"`
	QAIDs             flex.IDList `json:"qa_id"`
	Tenure            string      `json:"user_tenure"`
}

// Filter narrows the user list client side.
type Filter struct {
	Search string
	RoleID int64
	TeamID int64
	Active *bool
}

// UpdateRequest carries the edited form and, optionally, the snapshot taken
// when the form was opened. Without a snapshot the current record is loaded.
type UpdateRequest struct {
	Original *Form `json:"original,omitempty"`
	Edited   Form  `json:"edited"`
}

type ValidateRequest struct {
	Mode Mode `json:"mode"`
	Form Form `json:"form"`
}

type ToggleActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type PermissionUpdate struct {
	UserID                    int64 `json:"user_id"`
	UserCreationPermission    *bool `json:"user_creation_permission,omitempty"`
	ProjectCreationPermission *bool `json:"project_creation_permission,omitempty"`
}

// Result is the backend's acknowledgement of a write.
type Result struct {
	Message string `json:"message"`
}
