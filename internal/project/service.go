package project

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/project"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
)

type BackendAPI interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
	Batch(ctx context.Context, maxWorkers int, jobs ...apiclient.Job) map[string]apiclient.Result
}

// Query narrows a dropdown. Zero values are not sent.
type Query struct {
	RoleID    int64 `json:"role_id"`
	ProjectID int64 `json:"project_id"`
	TeamID    int64 `json:"team_id"`
}

// FormOptions feeds the user form dropdowns.
type FormOptions struct {
	Teams             []project.Option `json:"teams"`
	Designations      []project.Option `json:"designations"`
	ProjectManagers   []project.Option `json:"project_managers"`
	AssistantManagers []project.Option `json:"assistant_managers"`
	QualityAnalysts   []project.Option `json:"quality_analysts"`
	// Errors holds the dropdowns that failed, keyed like the fields above.
	Errors map[string]string `json:"errors,omitempty"`
}

const formWorkers = 3

type Service struct {
	backend BackendAPI
	logger  *slog.Logger
}

func NewService(backend BackendAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, logger: logger}
}

func dropdownRequest(kind Kind, q Query) apiclient.Request {
	body := map[string]any{"dropdown_type": string(kind)}
	if q.RoleID != 0 {
		body["role_id"] = q.RoleID
	}
	if q.ProjectID != 0 {
		body["project_id"] = q.ProjectID
	}
	if q.TeamID != 0 {
		body["team_id"] = q.TeamID
	}
	return apiclient.Request{Path: apiclient.PathDropdownGet, Body: body}
}

// Dropdown fetches one list of id/label options.
func (s *Service) Dropdown(ctx context.Context, kind Kind, q Query) ([]project.Option, error) {
	if !kind.Valid() {
		return nil, internal.NewValidationFieldError("type", fmt.Sprintf("unknown dropdown type %q", kind), internal.ErrCodeValidationFailed)
	}
	resp, err := s.backend.Do(ctx, dropdownRequest(kind, q))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s dropdown: %w", kind, err)
	}
	return Options(kind, resp.Data), nil
}

// Projects lists the projects with their tasks.
func (s *Service) Projects(ctx context.Context, q Query) ([]*Project, error) {
	resp, err := s.backend.Do(ctx, dropdownRequest(KindProjects, q))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	records, err := apiclient.DecodeList[project.Record](resp.Data)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode projects", err)
	}

	out := make([]*Project, 0, len(records))
	for _, r := range records {
		if !r.ProjectID.Valid {
			continue
		}
		out = append(out, FromRecord(r))
	}
	return out, nil
}

// FormOptions loads every user form dropdown at once. A failing list is
// reported in Errors and left empty; the others are still returned.
func (s *Service) FormOptions(ctx context.Context) (*FormOptions, error) {
	jobs := []apiclient.Job{
		{Key: "teams", Request: dropdownRequest(KindTeams, Query{})},
		{Key: "designations", Request: dropdownRequest(KindDesignations, Query{})},
		{Key: "project_managers", Request: dropdownRequest(KindUsers, Query{RoleID: role.ProjectManager.ID()})},
		{Key: "assistant_managers", Request: dropdownRequest(KindUsers, Query{RoleID: role.AssistantManager.ID()})},
		{Key: "quality_analysts", Request: dropdownRequest(KindUsers, Query{RoleID: role.QAAgent.ID()})},
	}
	kinds := map[string]Kind{
		"teams":              KindTeams,
		"designations":       KindDesignations,
		"project_managers":   KindUsers,
		"assistant_managers": KindUsers,
		"quality_analysts":   KindUsers,
	}

	results := s.backend.Batch(ctx, formWorkers, jobs...)

	out := &FormOptions{}
	lists := map[string]*[]project.Option{
		"teams":              &out.Teams,
		"designations":       &out.Designations,
		"project_managers":   &out.ProjectManagers,
		"assistant_managers": &out.AssistantManagers,
		"quality_analysts":   &out.QualityAnalysts,
	}

	failed := 0
	var lastErr error
	for key, dst := range lists {
		res, ok := results[key]
		if !ok || res.Err != nil || res.Response == nil {
			if out.Errors == nil {
				out.Errors = map[string]string{}
			}
			msg := internal.GenericFailureMessage
			if appErr, ok := internal.IsAppError(res.Err); ok {
				msg = appErr.Message
			}
			out.Errors[key] = msg
			*dst = []project.Option{}
			failed++
			lastErr = res.Err
			s.logger.Warn("form dropdown failed", "dropdown", key, "error", res.Err)
			continue
		}
		*dst = Options(kinds[key], res.Response.Data)
	}

	if failed == len(lists) && lastErr != nil {
		return nil, fmt.Errorf("failed to load form options: %w", lastErr)
	}
	return out, nil
}
