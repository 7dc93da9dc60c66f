package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal/auth"
	"github.com/go-chi/chi/middleware"
)

// Substrings of header and JSON field names whose values never reach the log.
// Card and series "key" fields stay visible.
var sensitiveFields = []string{
	"password",
	"otp",
	"token",
	"authorization",
	"cookie",
	"secret",
	"api_key",
	"credential",
}

// Bodies larger than this are logged by size only.
const maxLoggedBody = 8 << 10

// bodyContentTypes are logged in full; anything else (multipart uploads,
// xlsx exports) is logged by size only.
var bodyContentTypes = []string{"application/json", "text/plain", ""}

func loggableBody(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, ct := range bodyContentTypes {
		if contentType == ct {
			return true
		}
	}
	return false
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(name, field) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs each request and its response against the browser
// tab that made it.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lg := logger.With(
				"request_id", middleware.GetReqID(r.Context()),
				"browser_id", r.Header.Get(auth.HeaderBrowserID),
				"tab_id", r.Header.Get(auth.HeaderTabID),
			)

			logRequest(lg, r)

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			logResponse(r, lg, rec, time.Since(start))
		})
	}
}

// responseRecorder keeps the status, the size and at most maxLoggedBody bytes
// of what was written.
type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		rw.body.Write(b[:min(room, len(b))])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func logRequest(logger *slog.Logger, r *http.Request) {
	body := ""
	switch {
	case r.Body != nil && loggableBody(r.Header.Get("Content-Type")) && r.ContentLength <= maxLoggedBody:
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		body = filterSensitiveBody(raw)
	case r.ContentLength > 0:
		body = fmt.Sprintf("[%d bytes]", r.ContentLength)
	}

	logger.Info("incoming request",
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterSensitiveHeaders(r.Header),
		"body", body,
	)
}

func logResponse(r *http.Request, logger *slog.Logger, rw *responseRecorder, duration time.Duration) {
	status := rw.status
	if status == 0 {
		status = http.StatusOK
	}

	body := fmt.Sprintf("[%d bytes]", rw.size)
	if rw.size <= maxLoggedBody && loggableBody(rw.Header().Get("Content-Type")) {
		body = filterSensitiveBody(rw.body.Bytes())
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	logger.Log(r.Context(), level, "response",
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
		"body", body,
	)
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			filtered[name] = "[FILTERED]"
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

// filterSensitiveBody masks sensitive JSON fields at any depth. A body that
// is not JSON is dropped entirely when it mentions a sensitive name.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if isSensitive(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		return string(body)
	}

	out, err := json.Marshal(filterSensitiveJSON(data))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func filterSensitiveJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		filtered := make(map[string]any, len(v))
		for key, value := range v {
			if isSensitive(key) {
				filtered[key] = "[FILTERED]"
				continue
			}
			filtered[key] = filterSensitiveJSON(value)
		}
		return filtered
	case []any:
		filtered := make([]any, len(v))
		for i, item := range v {
			filtered[i] = filterSensitiveJSON(item)
		}
		return filtered
	default:
		return v
	}
}
