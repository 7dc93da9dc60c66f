package project

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/project"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Dropdown(ctx context.Context, kind Kind, q Query) ([]project.Option, error)
	Projects(ctx context.Context, q Query) ([]*Project, error)
	FormOptions(ctx context.Context) (*FormOptions, error)
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
	r.Get("/projects", h.Projects)
	r.Get("/dropdowns/form", h.FormOptions)
	r.Get("/dropdowns/{kind}", h.Dropdown)
}

func queryFrom(r *http.Request) Query {
	var q Query
	values := r.URL.Query()
	q.RoleID, _ = strconv.ParseInt(values.Get("role_id"), 10, 64)
	q.ProjectID, _ = strconv.ParseInt(values.Get("project_id"), 10, 64)
	q.TeamID, _ = strconv.ParseInt(values.Get("team_id"), 10, 64)
	return q
}

func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Service.Projects(r.Context(), queryFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    len(projects),
	})
}

// Dropdown handles GET /dropdowns/{kind}?role_id=&project_id=&team_id=
func (h *Handler) Dropdown(w http.ResponseWriter, r *http.Request) {
	kind := Kind(chi.URLParam(r, "kind"))
	options, err := h.Service.Dropdown(r.Context(), kind, queryFrom(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"options": options})
}

func (h *Handler) FormOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.Service.FormOptions(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, options)
}
