package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Overview(ctx context.Context, r role.Role, dates DateRange, tabs ...Tab) ([]Overview, error)
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
	r.Get("/", h.Overview)
}

// Overview handles GET /dashboard?start_date=&end_date=&tab=qa,agent
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dates := DateRange{From: q.Get("start_date"), To: q.Get("end_date")}

	var tabs []Tab
	for _, t := range strings.Split(q.Get("tab"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tabs = append(tabs, Tab(strings.ToLower(t)))
		}
	}

	viewer := role.Role(internal.RoleIDFromContext(r.Context()))
	overviews, err := h.Service.Overview(r.Context(), viewer, dates, tabs...)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"tabs": overviews})
}
