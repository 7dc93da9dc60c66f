package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/tracker"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/export"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Daily(ctx context.Context, viewer Viewer, filter Filter) (*DailyView, error)
	Monthly(ctx context.Context, viewer Viewer, filter Filter) (*MonthlyView, error)
	Trackers(ctx context.Context, viewer Viewer, filter Filter) ([]tracker.Entry, error)
	SubmitQC(ctx context.Context, edit QCEdit) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/daily", h.Daily)
	r.Get("/daily/export", h.ExportDaily)
	r.Get("/monthly", h.Monthly)
	r.Get("/monthly/export", h.ExportMonthly)
	r.Get("/trackers", h.Trackers)
	r.Post("/qc", h.SubmitQC)
}

func viewerFrom(r *http.Request) Viewer {
	ctx := r.Context()
	return Viewer{
		UserID: internal.UserIDFromContext(ctx),
		Role:   role.Role(internal.RoleIDFromContext(ctx)),
	}
}

func filterFrom(r *http.Request) Filter {
	q := r.URL.Query()
	f := Filter{Month: q.Get("month")}
	if v, err := strconv.ParseInt(q.Get("team_id"), 10, 64); err == nil {
		f.TeamID = v
	}
	return f
}

// Daily handles GET /reports/daily?month=YYYY-MM&team_id=
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Daily(r.Context(), viewerFrom(r), filterFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Monthly(r.Context(), viewerFrom(r), filterFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Trackers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Trackers(r.Context(), viewerFrom(r), filterFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trackers": entries,
		"total":    len(entries),
	})
}

func (h *Handler) SubmitQC(w http.ResponseWriter, r *http.Request) {
	var edit QCEdit
	if !h.DecodeJSON(w, r, &edit) {
		return
	}

	msg, err := h.Service.SubmitQC(r.Context(), edit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// ExportDaily handles GET /reports/daily/export?user_id=&month=. It writes
// the one user card currently visible under the filter.
func (h *Handler) ExportDaily(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		h.HandleServiceError(w, internal.NewValidationFieldError("user_id", "user_id is required", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.Daily(r.Context(), viewerFrom(r), filterFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	for _, card := range view.Cards {
		if card.User.UserID == userID {
			h.writeWorkbook(w, card.Table(), export.FileName(card.User.UserName))
			return
		}
	}
	h.HandleServiceError(w, internal.ErrUserNotFound)
}

// ExportMonthly handles GET /reports/monthly/export?month=&key=. Without a
// key the first visible month card is exported.
func (h *Handler) ExportMonthly(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Monthly(r.Context(), viewerFrom(r), filterFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	key := r.URL.Query().Get("key")
	for _, card := range view.Cards {
		if key == "" || card.Key == MonthKey(key) {
			h.writeWorkbook(w, card.Table(), export.FileName(card.Label))
			return
		}
	}
	h.HandleServiceError(w, internal.NewNotFoundError("No report rows for this month", internal.ErrCodeInvalidMonth))
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, t export.Table, name string) {
	data, err := export.Bytes(t)
	if err != nil {
		h.HandleServiceError(w, internal.NewInternalError("failed to build workbook", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("failed to write workbook", "file", name, "error", err)
	}
}
