package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/go-chi/chi/middleware"

	"github.com/google/uuid"
)

const HeaderTraceID = "X-Trace-ID"

// RequestID reuses the caller's trace id or mints one, and hands it to the
// context logger, chi's request id and the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		ctx = context.WithValue(ctx, middleware.RequestIDKey, traceID)

		w.Header().Set(HeaderTraceID, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
