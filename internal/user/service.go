package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	userDatamodel "github.com/frahmantamala/billable-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/media"
)

// BackendAPI is the part of apiclient.Client the user workflows need.
type BackendAPI interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
	DoMultipart(ctx context.Context, req apiclient.Request, files ...apiclient.File) (*apiclient.Response, error)
}

type Service struct {
	backend BackendAPI
	device  Device
	logger  *slog.Logger
}

func NewService(backend BackendAPI, device Device, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: backend,
		device:  device,
		logger:  logger,
	}
}

// List fetches all users and applies the filter locally. Results are sorted
// by name, then id.
func (s *Service) List(ctx context.Context, filter Filter) ([]*User, error) {
	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathUserList})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	records, err := apiclient.DecodeList[userDatamodel.Record](resp.Data)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode users", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	users := make([]*User, 0, len(records))
	for i := range records {
		u := FromRecord(&records[i])
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		if filter.RoleID != 0 && u.Role.ID() != filter.RoleID {
			continue
		}
		if filter.TeamID != 0 && u.TeamID != filter.TeamID {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		users = append(users, u)
	}

	sort.SliceStable(users, func(i, j int) bool {
		a, b := strings.ToLower(users[i].Name), strings.ToLower(users[j].Name)
		if a != b {
			return a < b
		}
		return users[i].ID < users[j].ID
	})

	return users, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*User, error) {
	users, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

// Create validates the form and submits it as multipart, with the profile
// picture attached when given.
func (s *Service) Create(ctx context.Context, form Form, picture *media.Picture) (*Result, error) {
	if errs := ValidateForm(form, ModeCreate); len(errs) > 0 {
		return nil, internal.NewFieldMapError(errs)
	}

	body := createPayload(form)
	resp, err := s.backend.DoMultipart(ctx, apiclient.Request{Path: apiclient.PathAuthUser, Body: body}, pictureFiles(picture)...)
	if err != nil {
		s.logger.Error("failed to create user", "email", form.Email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", "email", form.Email, "role_id", form.RoleID)
	return &Result{Message: resp.Message}, nil
}

// createPayload sends every scalar plus the hierarchy lists the role shows.
func createPayload(form Form) map[string]any {
	body := map[string]any{
		FieldName:          strings.TrimSpace(form.Name),
		FieldEmail:         strings.TrimSpace(form.Email),
		FieldPassword:      form.Password,
		FieldRoleID:        toNumber(normalize(form.RoleID, true)),
		FieldDesignationID: toNumber(normalize(form.DesignationID, true)),
		FieldTeamID:        toNumber(normalize(form.TeamID, true)),
	}
	if phone := strings.TrimSpace(form.Phone); phone != "" {
		body[FieldPhone] = phone
	}

	visibility := role.ResolveVisibility(form.RoleID)
	lists := map[string][]int64{
		role.FieldProjectManager:   form.ProjectManagerIDs,
		role.FieldAssistantManager: form.AsstManagerIDs,
		role.FieldQualityAnalyst:   form.QAIDs,
	}
	keys := map[string]string{
		role.FieldProjectManager:   FieldProjectManagerIDs,
		role.FieldAssistantManager: FieldAsstManagerIDs,
		role.FieldQualityAnalyst:   FieldQAIDs,
	}
	for field, ids := range lists {
		if !visibility.Visible(field) {
			body[keys[field]] = []int64{}
			continue
		}
		if ids == nil {
			ids = []int64{}
		}
		body[keys[field]] = ids
	}
	if visibility.Visible(role.FieldTenure) {
		body[FieldTenure] = toNumber(normalize(form.Tenure, true))
	}
	return body
}

// Update diffs the edited form against the snapshot and sends only the
// changed fields. With no changes and no new picture it returns
// ErrNothingChanged without calling the backend.
func (s *Service) Update(ctx context.Context, userID int64, req UpdateRequest, picture *media.Picture) (*Result, error) {
	original := req.Original
	if original == nil {
		current, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		snapshot := FormFromUser(current)
		original = &snapshot
	}

	payload, err := BuildUpdatePayload(userID, s.device, *original, req.Edited)
	if errors.Is(err, internal.ErrNothingChanged) && picture == nil {
		s.logger.Info("user update skipped, nothing changed", "user_id", userID)
		return nil, err
	}

	if pw, ok := payload[FieldPassword].(string); ok {
		if errs := ValidatePasswordChange(pw); len(errs) > 0 {
			return nil, internal.NewFieldMapError(errs)
		}
	}

	request := apiclient.Request{Path: apiclient.PathUserUpdate, Body: payload}
	var resp *apiclient.Response
	if picture != nil {
		resp, err = s.backend.DoMultipart(ctx, request, pictureFiles(picture)...)
	} else {
		resp, err = s.backend.Do(ctx, request)
	}
	if err != nil {
		s.logger.Error("failed to update user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user updated", "user_id", userID, "fields", payload.Changed(), "picture", picture != nil)
	return &Result{Message: resp.Message}, nil
}

func (s *Service) ToggleActive(ctx context.Context, userID int64, active bool) (*Result, error) {
	flag := 0
	if active {
		flag = 1
	}
	resp, err := s.backend.Do(ctx, apiclient.Request{
		Path: apiclient.PathUserUpdate,
		Body: map[string]any{FieldUserID: userID, FieldIsActive: flag},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle user %d: %w", userID, err)
	}
	s.logger.Info("user active flag changed", "user_id", userID, "is_active", active)
	return &Result{Message: resp.Message}, nil
}

// Delete removes a user; the caller must have confirmed it.
func (s *Service) Delete(ctx context.Context, userID int64, confirmed bool) (*Result, error) {
	if !confirmed {
		return nil, internal.ErrConfirmRequired
	}
	resp, err := s.backend.Do(ctx, apiclient.Request{
		Path: apiclient.PathUserDelete,
		Body: map[string]any{FieldUserID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	s.logger.Info("user deleted", "user_id", userID)
	return &Result{Message: resp.Message}, nil
}

func (s *Service) PermissionList(ctx context.Context) ([]*PermissionEntry, error) {
	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathPermissionUserList})
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	records, err := apiclient.DecodeList[userDatamodel.PermissionRecord](resp.Data)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode permissions", err)
	}

	entries := make([]*PermissionEntry, 0, len(records))
	for i := range records {
		entries = append(entries, FromPermissionRecord(&records[i]))
	}
	return entries, nil
}

func (s *Service) UpdatePermission(ctx context.Context, update PermissionUpdate) (*Result, error) {
	if update.UserID == 0 {
		return nil, internal.NewValidationFieldError(FieldUserID, "User is required", internal.ErrCodeValidationFailed)
	}
	if update.UserCreationPermission == nil && update.ProjectCreationPermission == nil {
		return nil, internal.ErrNothingChanged
	}

	body := map[string]any{FieldUserID: update.UserID}
	if update.UserCreationPermission != nil {
		body["user_creation_permission"] = boolFlag(*update.UserCreationPermission)
	}
	if update.ProjectCreationPermission != nil {
		body["project_creation_permission"] = boolFlag(*update.ProjectCreationPermission)
	}

	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathPermissionUpdate, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to update permissions for user %d: %w", update.UserID, err)
	}
	s.logger.Info("permissions updated", "user_id", update.UserID)
	return &Result{Message: resp.Message}, nil
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func pictureFiles(p *media.Picture) []apiclient.File {
	if p == nil {
		return nil
	}
	return []apiclient.File{{
		Field:       FieldProfilePicture,
		Name:        p.Name,
		ContentType: p.ContentType,
		Data:        p.Data,
	}}
}

// ParseID reads a path id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(FieldUserID, "invalid user id", internal.ErrCodeValidationFailed)
	}
	return id, nil
}
