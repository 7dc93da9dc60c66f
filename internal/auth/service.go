package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/session"
)

// Service is the main auth service with dependencies
type Service struct {
	backend BackendAPI
	tabs    Tabs
	logger  *slog.Logger
}

func NewService(backend BackendAPI, tabs Tabs, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, tabs: tabs, logger: logger}
}

// loginData accepts the user either flat in data or nested under "user".
type loginData struct {
	user.Record
	Token       flex.String  `json:"token"`
	AccessToken flex.String  `json:"access_token"`
	User        *user.Record `json:"user"`
}

// Login checks the credentials against the backend and opens the session
// of the calling tab. Any other authenticated tab of the browser is logged
// out by the session broadcast.
func (s *Service) Login(ctx context.Context, tab TabRef, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.backend.Do(ctx, apiclient.Request{
		Path:      apiclient.PathAuthUser,
		Anonymous: true,
		Body: map[string]any{
			"user_email":    strings.TrimSpace(dto.Email),
			"user_password": dto.Password,
		},
	})
	if err != nil {
		s.logger.Warn("login rejected", "email", dto.Email, "error", err)
		return nil, err
	}

	var data loginData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, internal.NewInternalError("failed to decode login response", err)
	}
	rec := data.Record
	if data.User != nil {
		rec = *data.User
	}
	if !rec.UserID.Valid {
		return nil, internal.ErrInvalidCredentials
	}
	if rec.IsActive.Valid && rec.IsActive.Value == 0 {
		return nil, internal.ErrUserInactive
	}

	token := string(data.Token)
	if token == "" {
		token = string(data.AccessToken)
	}

	u := session.User{
		UserID:          rec.UserID.Value,
		Name:            strings.TrimSpace(string(rec.UserName)),
		Email:           string(rec.UserEmail),
		Role:            normalizeRole(rec.RoleID),
		TeamID:          rec.TeamID.Value,
		Token:           token,
		UserCreation:    rec.UserCreationPermission.Value == 1,
		ProjectCreation: rec.ProjectCreationPermission.Value == 1,
	}

	sessionID, err := s.tabs.Tab(tab.BrowserID, tab.TabID).Login(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s.logger.Info("user logged in", "user_id", u.UserID, "role", u.Role.String(), "tab_id", tab.TabID)
	return &LoginResult{SessionID: sessionID, User: u, Permissions: u.Permissions()}, nil
}

func normalizeRole(id flex.Int) role.Role {
	if !id.Valid {
		return role.None
	}
	return role.FromAny(id.Value)
}

func (s *Service) Logout(ctx context.Context, tab TabRef) error {
	if err := s.tabs.Tab(tab.BrowserID, tab.TabID).Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	s.tabs.CloseTab(tab.BrowserID, tab.TabID)
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, tab TabRef) (*session.User, error) {
	return s.tabs.Tab(tab.BrowserID, tab.TabID).CurrentUser(ctx)
}

func (s *Service) RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO) (string, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}
	return s.passthrough(ctx, apiclient.PathPasswordResetRequest, map[string]any{
		"user_email": strings.TrimSpace(dto.Email),
	})
}

func (s *Service) VerifyResetCode(ctx context.Context, dto VerifyCodeDTO) (string, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}
	return s.passthrough(ctx, apiclient.PathPasswordResetVerify, map[string]any{
		"user_email": strings.TrimSpace(dto.Email),
		"otp":        strings.TrimSpace(dto.OTP),
	})
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) (string, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}
	return s.passthrough(ctx, apiclient.PathPasswordResetConfirm, map[string]any{
		"user_email":   strings.TrimSpace(dto.Email),
		"otp":          strings.TrimSpace(dto.OTP),
		"new_password": dto.NewPassword,
	})
}

func (s *Service) passthrough(ctx context.Context, path string, body map[string]any) (string, error) {
	resp, err := s.backend.Do(ctx, apiclient.Request{Path: path, Body: body, Anonymous: true})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}
