package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
)

type BackendAPI interface {
	Batch(ctx context.Context, maxWorkers int, jobs ...apiclient.Job) map[string]apiclient.Result
}

type Service struct {
	backend     BackendAPI
	generations *apiclient.Generations
	logger      *slog.Logger
}

func NewService(backend BackendAPI, generations *apiclient.Generations, logger *slog.Logger) *Service {
	if generations == nil {
		generations = apiclient.NewGenerations()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, generations: generations, logger: logger}
}

// Overview fetches the requested tabs in parallel. With no tabs given every
// tab the role may open is fetched; tabs outside the role are refused. A
// failed tab carries its message in Overview.Error.
func (s *Service) Overview(ctx context.Context, r role.Role, dates DateRange, tabs ...Tab) ([]Overview, error) {
	if err := dates.Validate(); err != nil {
		return nil, err
	}

	allowed := TabsFor(r)
	if len(tabs) == 0 {
		tabs = allowed
	}
	if len(tabs) == 0 {
		return nil, internal.ErrInsufficientRole
	}
	for _, t := range tabs {
		if !contains(allowed, t) {
			s.logger.Warn("dashboard tab refused", "tab", t, "role", r.String())
			return nil, internal.ErrInsufficientRole
		}
	}

	jobs := make([]apiclient.Job, 0, len(tabs))
	for _, t := range tabs {
		body := map[string]any{"dashboard_type": string(t)}
		if dates.From != "" {
			body["start_date"] = dates.From
		}
		if dates.To != "" {
			body["end_date"] = dates.To
		}
		jobs = append(jobs, apiclient.Job{
			Key:     string(t),
			Request: apiclient.Request{Path: apiclient.PathDashboardFilter, Body: body},
		})
	}

	ticket := s.generations.Begin(generationKey(internal.TabIDFromContext(ctx)))
	results := s.backend.Batch(ctx, len(jobs), jobs...)
	if err := ticket.Check(); err != nil {
		return nil, err
	}

	out := make([]Overview, 0, len(tabs))
	failed := 0
	var lastErr error
	for _, t := range tabs {
		res := results[string(t)]
		if res.Err != nil || res.Response == nil {
			failed++
			lastErr = res.Err
			msg := internal.GenericFailureMessage
			if appErr, ok := internal.IsAppError(res.Err); ok {
				msg = appErr.Message
			}
			s.logger.Warn("dashboard tab failed", "tab", t, "error", res.Err)
			out = append(out, Overview{Tab: t, Cards: []StatCard{}, Series: []Series{}, Error: msg})
			continue
		}
		out = append(out, Build(t, res.Response.Data))
	}

	if failed == len(tabs) && lastErr != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", lastErr)
	}
	return out, nil
}

func contains(tabs []Tab, t Tab) bool {
	for _, x := range tabs {
		if x == t {
			return true
		}
	}
	return false
}

func generationKey(tabID string) string {
	return tabID + ":dashboard"
}

// Forget drops the request generation of a closed or invalidated tab.
func (s *Service) Forget(tabID string) {
	s.generations.Forget(generationKey(tabID))
}
