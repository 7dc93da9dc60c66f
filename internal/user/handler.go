package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/media"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, filter Filter) ([]*User, error)
	Get(ctx context.Context, userID int64) (*User, error)
	Create(ctx context.Context, form Form, picture *media.Picture) (*Result, error)
	Update(ctx context.Context, userID int64, req UpdateRequest, picture *media.Picture) (*Result, error)
	ToggleActive(ctx context.Context, userID int64, active bool) (*Result, error)
	Delete(ctx context.Context, userID int64, confirmed bool) (*Result, error)
	PermissionList(ctx context.Context) ([]*PermissionEntry, error)
	UpdatePermission(ctx context.Context, update PermissionUpdate) (*Result, error)
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

// Routes mounts the user administration endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/validate", h.Validate)
	r.Get("/visibility", h.Visibility)
	r.Get("/permissions", h.PermissionList)
	r.Patch("/permissions", h.UpdatePermission)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Patch("/{id}/active", h.ToggleActive)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /users?search=&role_id=&team_id=&active=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Search: q.Get("search")}
	if v, err := strconv.ParseInt(q.Get("role_id"), 10, 64); err == nil {
		filter.RoleID = v
	}
	if v, err := strconv.ParseInt(q.Get("team_id"), 10, 64); err == nil {
		filter.TeamID = v
	}
	if v, err := strconv.ParseBool(q.Get("active")); err == nil {
		filter.Active = &v
	}

	users, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("List: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// Create handles POST /users. The body is JSON, or multipart with the form
// JSON in "data" and an optional "profile_picture" file.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form Form
	picture, ok := h.decodeWithPicture(w, r, &form)
	if !ok {
		return
	}

	result, err := h.Service.Create(r.Context(), form, picture)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

// Update handles PATCH /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var req UpdateRequest
	picture, ok := h.decodeWithPicture(w, r, &req)
	if !ok {
		return
	}

	result, err := h.Service.Update(r.Context(), id, req, picture)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var req ToggleActiveRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Service.ToggleActive(r.Context(), id, req.IsActive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /users/{id}?confirm=true
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	result, err := h.Service.Delete(r.Context(), id, confirmed)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// Validate handles POST /users/validate for live form feedback.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = ModeCreate
	}

	errs := ValidateForm(req.Form, req.Mode)
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// Visibility handles GET /users/visibility?role_id=
func (h *Handler) Visibility(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, role.ResolveVisibility(r.URL.Query().Get("role_id")))
}

func (h *Handler) PermissionList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.PermissionList(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"permissions": entries})
}

func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req PermissionUpdate
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Service.UpdatePermission(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) decodeWithPicture(w http.ResponseWriter, r *http.Request, v interface{}) (*media.Picture, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, h.DecodeJSON(w, r, v)
	}

	if err := r.ParseMultipartForm(media.MaxUploadBytes + 1<<20); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	if err := json.Unmarshal([]byte(r.FormValue("data")), v); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form data")
		return nil, false
	}

	file, header, err := r.FormFile(FieldProfilePicture)
	if err == http.ErrMissingFile {
		return nil, true
	}
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid profile picture")
		return nil, false
	}
	defer file.Close()

	picture, err := media.Prepare(file, header.Filename)
	if err != nil {
		h.HandleServiceError(w, internal.NewValidationFieldError(FieldProfilePicture, err.Error(), internal.ErrCodeValidationFailed))
		return nil, false
	}
	return picture, true
}
