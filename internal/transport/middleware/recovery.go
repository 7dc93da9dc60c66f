package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/billable-dashboard/internal"
	pkglogger "github.com/frahmantamala/billable-dashboard/pkg/logger"
)

// RecoveryMiddleware provides panic recovery with detailed logging. The
// client only sees the generic failure message.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					pkglogger.FromOr(r.Context(), logger).Error("panic recovered",
						"error", err,
						"method", r.Method,
						"url", r.URL.String(),
						"tab_id", internal.TabIDFromContext(r.Context()),
						"stack", string(debug.Stack()))

					status, body := internal.NewInternalError(internal.GenericFailureMessage, nil).ToHTTPResponse()
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(status)
					_ = json.NewEncoder(w).Encode(body)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
