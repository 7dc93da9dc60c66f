package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/session"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/go-chi/chi"
)

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

// UnauthorizedResponse tells the client to go back to the login screen.
type UnauthorizedResponse struct {
	Error    *internal.AppError `json:"error"`
	Redirect string             `json:"redirect"`
}

// PublicRoutes need a tab but no session.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/password-reset/request", h.RequestPasswordReset)
	r.Post("/password-reset/verify", h.VerifyResetCode)
	r.Post("/password-reset/reset", h.ResetPassword)
}

// Routes need an authenticated tab.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}

func tabFrom(r *http.Request) (TabRef, bool) {
	tab := TabRef{
		BrowserID: strings.TrimSpace(r.Header.Get(HeaderBrowserID)),
		TabID:     strings.TrimSpace(r.Header.Get(HeaderTabID)),
	}
	return tab, tab.BrowserID != "" && tab.TabID != ""
}

func (h *Handler) missingTab(w http.ResponseWriter) {
	h.HandleServiceError(w, internal.NewValidationError("X-Browser-ID and X-Tab-ID headers are required", internal.ErrCodeValidationFailed))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	tab, ok := tabFrom(r)
	if !ok {
		h.missingTab(w)
		return
	}

	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	result, err := h.Service.Login(r.Context(), tab, dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	tab, ok := TabFromContext(r.Context())
	if !ok {
		h.missingTab(w)
		return
	}
	if err := h.Service.Logout(r.Context(), tab); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.unauthorized(w, internal.ErrSessionMissing)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":         u,
		"permissions":  u.Permissions(),
		"capabilities": Capabilities(u),
	})
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var dto PasswordResetRequestDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	msg, err := h.Service.RequestPasswordReset(r.Context(), dto)
	h.writeMessage(w, msg, err)
}

func (h *Handler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var dto VerifyCodeDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	msg, err := h.Service.VerifyResetCode(r.Context(), dto)
	h.writeMessage(w, msg, err)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	msg, err := h.Service.ResetPassword(r.Context(), dto)
	h.writeMessage(w, msg, err)
}

func (h *Handler) writeMessage(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) unauthorized(w http.ResponseWriter, err *internal.AppError) {
	h.WriteJSON(w, http.StatusUnauthorized, UnauthorizedResponse{Error: err, Redirect: session.LoginPath})
}

// TabMiddleware requires the browser and tab headers and puts the tab on
// the context.
func (h *Handler) TabMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tab, ok := tabFrom(r)
		if !ok {
			h.missingTab(w)
			return
		}
		ctx := WithTab(r.Context(), tab)
		ctx = internal.ContextWithTabID(ctx, tab.TabID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware loads the tab's session user. A tab without a session, or
// one replaced by another tab, gets 401 with a redirect to the login screen.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return h.TabMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tab, _ := TabFromContext(r.Context())

		u, err := h.Service.CurrentUser(r.Context(), tab)
		if err != nil {
			appErr, ok := internal.IsAppError(err)
			if !ok {
				h.HandleServiceError(w, err)
				return
			}
			h.Logger.Info("auth middleware: tab has no session", "tab_id", tab.TabID, "code", appErr.Code)
			h.unauthorized(w, appErr)
			return
		}

		ctx := WithUser(r.Context(), u)
		ctx = internal.ContextWithUserID(ctx, u.UserID)
		ctx = internal.ContextWithRoleID(ctx, int(u.Role))
		ctx = apiclient.WithIdentity(ctx, apiclient.Identity{Token: u.Token, UserID: u.UserID})
		ctx = logger.With(ctx, "user_id", u.UserID, "tab_id", tab.TabID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}
