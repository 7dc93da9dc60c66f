package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/auth"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
)

// RequireCapabilities lets the request through when the session user holds
// any of the capabilities. It must run after the auth middleware.
func RequireCapabilities(checker auth.PermissionChecker, logger *slog.Logger, capabilities ...auth.Capability) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				base.HandleServiceError(w, internal.ErrSessionMissing)
				return
			}

			if !checker.HasAny(user, capabilities...) {
				base.Logger.Warn("access denied: missing capability",
					"user_id", user.UserID,
					"role", user.Role.String(),
					"required", capabilities)
				base.HandleServiceError(w, internal.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
