package user

import (
	"regexp"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal/core/common/validation"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
)

const (
	passwordMinLength = 6
	passwordMaxLength = 50
)

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// ValidateForm returns field -> message for the create form. Edit mode is
// not validated so an admin can change one field without satisfying the
// rest; a changed password is still bounded, see ValidatePasswordChange.
func ValidateForm(form Form, mode Mode) map[string]string {
	if mode != ModeCreate {
		return map[string]string{}
	}
	return formValidator(form).Messages()
}

func formValidator(form Form) *validation.ValidationBuilder {
	v := validation.NewValidator()

	v.Field(FieldName, "Name", form.Name).
		Required().
		MinLength(3).
		Matches(namePattern, "Name can only contain letters and spaces")

	v.Field(FieldEmail, "Email", form.Email).
		Required().
		Matches(emailPattern, "Please enter a valid email address")

	if strings.TrimSpace(form.Phone) != "" {
		v.Field(FieldPhone, "Phone number", strings.TrimSpace(form.Phone)).
			Matches(phonePattern, "Phone number must be exactly 10 digits")
	}

	v.Field(FieldPassword, "Password", form.Password).
		Required().
		LengthBetween(passwordMinLength, passwordMaxLength)

	v.Field(FieldRoleID, "Role", form.RoleID).Required()
	v.Field(FieldDesignationID, "Designation", form.DesignationID).Required()
	v.Field(FieldTeamID, "Team", form.TeamID).Required()

	visibility := role.ResolveVisibility(form.RoleID)
	if visibility.Required(role.FieldProjectManager) {
		v.Field(FieldProjectManagerIDs, "Project manager", []int64(form.ProjectManagerIDs)).Required()
	}
	if visibility.Required(role.FieldAssistantManager) {
		v.Field(FieldAsstManagerIDs, "Assistant manager", []int64(form.AsstManagerIDs)).Required()
	}
	if visibility.Required(role.FieldQualityAnalyst) {
		v.Field(FieldQAIDs, "Quality analyst", []int64(form.QAIDs)).Required()
	}
	if visibility.Required(role.FieldTenure) {
		v.Field(FieldTenure, "Tenure", form.Tenure).
			Required().
			PositiveNumber()
	}

	return v
}

// ValidatePasswordChange bounds a new password entered on the edit form.
// Blank means unchanged.
func ValidatePasswordChange(password string) map[string]string {
	if strings.TrimSpace(password) == "" {
		return map[string]string{}
	}
	v := validation.NewValidator()
	v.Field(FieldPassword, "Password", password).LengthBetween(passwordMinLength, passwordMaxLength)
	return v.Messages()
}

// FormState tracks a form across edits. Before the first submit no errors
// are shown; afterwards every edit re-validates the edited field only.
type FormState struct {
	Mode      Mode
	Form      Form
	Errors    map[string]string
	submitted bool
}

func NewFormState(mode Mode, form Form) *FormState {
	return &FormState{Mode: mode, Form: form, Errors: map[string]string{}}
}

// Submit validates the whole form and reports whether it may be sent.
func (s *FormState) Submit() bool {
	s.submitted = true
	s.Errors = ValidateForm(s.Form, s.Mode)
	return len(s.Errors) == 0
}

func (s *FormState) Submitted() bool {
	return s.submitted
}

// SetField updates a scalar field by its key.
func (s *FormState) SetField(field, value string) {
	switch field {
	case FieldName:
		s.Form.Name = value
	case FieldEmail:
		s.Form.Email = value
	case FieldPhone:
		s.Form.Phone = value
	case FieldPassword:
		s.Form.Password = value
	case FieldRoleID:
		s.Form.RoleID = value
	case FieldDesignationID:
		s.Form.DesignationID = value
	case FieldTeamID:
		s.Form.TeamID = value
	case FieldTenure:
		s.Form.Tenure = value
	default:
		return
	}
	s.revalidate(field)
}

// SetIDs updates one of the hierarchy id lists.
func (s *FormState) SetIDs(field string, ids []int64) {
	switch field {
	case FieldProjectManagerIDs:
		s.Form.ProjectManagerIDs = ids
	case FieldAsstManagerIDs:
		s.Form.AsstManagerIDs = ids
	case FieldQAIDs:
		s.Form.QAIDs = ids
	default:
		return
	}
	s.revalidate(field)
}

func (s *FormState) revalidate(field string) {
	if !s.submitted {
		return
	}

	current := ValidateForm(s.Form, s.Mode)
	if msg, ok := current[field]; ok {
		s.Errors[field] = msg
	} else {
		delete(s.Errors, field)
	}

	// A role change can hide hierarchy fields; their errors go with them.
	if field == FieldRoleID {
		for _, f := range []string{FieldProjectManagerIDs, FieldAsstManagerIDs, FieldQAIDs, FieldTenure} {
			if _, still := current[f]; !still {
				delete(s.Errors, f)
			}
		}
	}
}
