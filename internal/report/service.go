package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/tracker"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
)

type BackendAPI interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Viewer is the logged-in user the report is rendered for.
type Viewer struct {
	UserID int64
	Role   role.Role
}

// Filter is shared by both views. TeamID only applies to privileged roles.
type Filter struct {
	Month  string `json:"month"`
	TeamID int64  `json:"team_id"`
}

type DailyView struct {
	Month  string     `json:"month,omitempty"`
	TeamID int64      `json:"team_id,omitempty"`
	Cards  []UserCard `json:"cards"`
}

type MonthlyView struct {
	Month  string      `json:"month,omitempty"`
	TeamID int64       `json:"team_id,omitempty"`
	Cards  []MonthCard `json:"cards"`
}

// QCEdit is the QC score / assigned hours correction from the edit modal.
type QCEdit struct {
	TrackerID     int64    `json:"tracker_id"`
	QCScore       *float64 `json:"qc_score,omitempty"`
	AssignedHours *float64 `json:"assigned_hours,omitempty"`
}

type Service struct {
	backend     BackendAPI
	generations *apiclient.Generations
	logger      *slog.Logger

	mu     sync.Mutex
	boards map[string]*DailyBoard
}

func NewService(backend BackendAPI, generations *apiclient.Generations, logger *slog.Logger) *Service {
	if generations == nil {
		generations = apiclient.NewGenerations()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:     backend,
		generations: generations,
		logger:      logger,
		boards:      make(map[string]*DailyBoard),
	}
}

func viewKey(ctx context.Context, view string) string {
	tab := internal.TabIDFromContext(ctx)
	if tab == "" {
		tab = "default"
	}
	return tab + ":" + view
}

// Board returns the daily board of the calling tab.
func (s *Service) Board(ctx context.Context) *DailyBoard {
	key := viewKey(ctx, "daily")
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[key]
	if !ok {
		b = NewDailyBoard()
		s.boards[key] = b
	}
	return b
}

// Forget drops the per-tab state of a closed or invalidated tab.
func (s *Service) Forget(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, view := range []string{"daily", "monthly", "trackers"} {
		key := tabID + ":" + view
		delete(s.boards, key)
		s.generations.Forget(key)
	}
}

func (s *Service) query(viewer Viewer, filter Filter) (map[string]any, *MonthYear, error) {
	month, err := ParseMonthFilter(filter.Month)
	if err != nil {
		return nil, nil, err
	}

	body := map[string]any{}
	if month != nil {
		body["month"] = int(month.Month)
		body["year"] = month.Year
	}
	if filter.TeamID != 0 {
		if viewer.Role.IsPrivileged() {
			body["team_id"] = filter.TeamID
		} else {
			s.logger.Warn("team filter ignored for role", "user_id", viewer.UserID, "role", viewer.Role.String())
		}
	}
	return body, month, nil
}

// Daily fetches the daily tracker rows and builds the board. A response
// overtaken by a newer Daily call from the same tab returns ErrStale.
func (s *Service) Daily(ctx context.Context, viewer Viewer, filter Filter) (*DailyView, error) {
	body, month, err := s.query(viewer, filter)
	if err != nil {
		return nil, err
	}

	ticket := s.generations.Begin(viewKey(ctx, "daily"))
	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathTrackerViewDaily, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily trackers: %w", err)
	}
	if err := ticket.Check(); err != nil {
		s.logger.Debug("dropping stale daily response", "key", viewKey(ctx, "daily"))
		return nil, err
	}

	rows, err := apiclient.DecodeList[tracker.DailyRow](resp.Data)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode daily trackers", err)
	}

	if month != nil {
		kept := rows[:0]
		for _, r := range rows {
			if month.Contains(string(r.WorkDate)) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	view := &DailyView{Cards: s.Board(ctx).Build(rows)}
	if month != nil {
		view.Month = month.Filter()
	}
	if _, ok := body["team_id"]; ok {
		view.TeamID = filter.TeamID
	}
	return view, nil
}

// Monthly fetches the monthly summaries and groups them by month.
func (s *Service) Monthly(ctx context.Context, viewer Viewer, filter Filter) (*MonthlyView, error) {
	body, month, err := s.query(viewer, filter)
	if err != nil {
		return nil, err
	}

	ticket := s.generations.Begin(viewKey(ctx, "monthly"))
	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathMonthlyTrackerList, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch monthly trackers: %w", err)
	}
	if err := ticket.Check(); err != nil {
		return nil, err
	}

	rows, err := apiclient.DecodeList[tracker.MonthlyRow](resp.Data)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode monthly trackers", err)
	}

	if month != nil {
		key := month.Key()
		kept := rows[:0]
		for _, r := range rows {
			if MonthKey(string(r.MonthYear)) == key {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	view := &MonthlyView{Cards: GroupMonthly(rows)}
	if month != nil {
		view.Month = month.Filter()
	}
	if _, ok := body["team_id"]; ok {
		view.TeamID = filter.TeamID
	}
	return view, nil
}

// Trackers lists raw tracker submissions.
func (s *Service) Trackers(ctx context.Context, viewer Viewer, filter Filter) ([]tracker.Entry, error) {
	body, _, err := s.query(viewer, filter)
	if err != nil {
		return nil, err
	}

	ticket := s.generations.Begin(viewKey(ctx, "trackers"))
	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathTrackerView, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trackers: %w", err)
	}
	if err := ticket.Check(); err != nil {
		return nil, err
	}

	entries, err := apiclient.DecodeList[tracker.Entry](resp.Data)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode trackers", err)
	}
	return entries, nil
}

// SubmitQC sends a QC score and/or assigned hours correction.
func (s *Service) SubmitQC(ctx context.Context, edit QCEdit) (string, error) {
	errs := map[string]string{}
	if edit.TrackerID <= 0 {
		errs["tracker_id"] = "Tracker is required"
	}
	if edit.QCScore == nil && edit.AssignedHours == nil {
		errs["qc_score"] = "Enter a QC score or assigned hours"
	}
	if edit.QCScore != nil && (*edit.QCScore < 0 || *edit.QCScore > 100) {
		errs["qc_score"] = "QC score must be between 0 and 100"
	}
	if edit.AssignedHours != nil && *edit.AssignedHours < 0 {
		errs["assigned_hours"] = "Assigned hours cannot be negative"
	}
	if len(errs) > 0 {
		return "", internal.NewFieldMapError(errs)
	}

	body := map[string]any{"tracker_id": edit.TrackerID}
	if edit.QCScore != nil {
		body["qc_score"] = *edit.QCScore
	}
	if edit.AssignedHours != nil {
		body["assigned_hours"] = *edit.AssignedHours
	}

	resp, err := s.backend.Do(ctx, apiclient.Request{Path: apiclient.PathQCTemp, Body: body})
	if err != nil {
		return "", fmt.Errorf("failed to submit qc for tracker %d: %w", edit.TrackerID, err)
	}
	s.logger.Info("qc submitted", "tracker_id", edit.TrackerID)
	return resp.Message, nil
}
