package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
)

// Identity is the caller on whose behalf a request is made.
type Identity struct {
	Token  string
	UserID int64
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	DeviceID       string
	DeviceType     string
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
	// Anonymous requests carry no bearer token and a 401 does not end the
	// session (the login form itself).
	Anonymous bool
}

// Response is the decoded {status, message, data} envelope.
type Response struct {
	StatusCode int
	Status     any
	Message    string
	Data       json.RawMessage
}

type Client struct {
	baseURL    string
	deviceID   string
	deviceType string
	http       *http.Client
	logger     *slog.Logger

	// OnUnauthorized fires on a 401 outside anonymous requests.
	OnUnauthorized func(ctx context.Context)
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		deviceID:   config.DeviceID,
		deviceType: config.DeviceType,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Do sends req with a JSON body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	payload := c.withAudit(ctx, req.Body)

	var body io.Reader
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	query := req.Query
	if method == http.MethodGet {
		query = mergeQuery(query, payload)
	} else {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := c.newRequest(ctx, method, req.Path, query, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return c.send(ctx, req, httpReq)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

func (c *Client) send(ctx context.Context, req Request, httpReq *http.Request) (*Response, error) {
	if !req.Anonymous {
		if id, ok := IdentityFromContext(ctx); ok && id.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+id.Token)
		}
	}

	log := logger.FromOr(ctx, c.logger)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Error("backend request failed",
			"method", httpReq.Method,
			"path", req.Path,
			"error", err)
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	log.Debug("backend response",
		"method", httpReq.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	envelope := decodeEnvelope(raw)
	envelope.StatusCode = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return envelope, nil
	}

	return nil, c.statusError(ctx, req, envelope)
}

func (c *Client) statusError(ctx context.Context, req Request, resp *Response) error {
	log := logger.FromOr(ctx, c.logger)
	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized && req.Anonymous:
		return internal.NewUnauthorizedError(messageOr(resp.Message, internal.ErrInvalidCredentials.Message), internal.ErrCodeInvalidCredentials)
	case status == http.StatusUnauthorized:
		log.Warn("backend rejected session", "path", req.Path)
		if c.OnUnauthorized != nil {
			c.OnUnauthorized(ctx)
		}
		return internal.NewUnauthorizedError(internal.FriendlyMessage(status), internal.ErrCodeSessionMissing)
	case status == http.StatusForbidden:
		log.Warn("backend denied access", "path", req.Path, "message", resp.Message)
		return internal.NewForbiddenError(internal.FriendlyMessage(status), internal.ErrCodeInsufficientRole)
	case status >= 500:
		log.Error("backend server error", "path", req.Path, "status", status, "message", resp.Message)
		return internal.NewExternalError(http.StatusBadGateway, internal.FriendlyMessage(status), internal.ErrCodeBackendUnavailable)
	default:
		err := internal.NewExternalError(status, internal.FriendlyMessage(status), internal.ErrCodeBackendRejected)
		if resp.Message != "" {
			err = err.WithDetails(map[string]string{"backend_message": resp.Message})
		}
		return err
	}
}

func (c *Client) withAudit(ctx context.Context, body map[string]any) map[string]any {
	out := make(map[string]any, len(body)+3)
	for k, v := range body {
		out[k] = v
	}
	if id, ok := IdentityFromContext(ctx); ok && id.UserID != 0 {
		out[FieldLoggedInUserID] = id.UserID
	}
	out[FieldDeviceID] = c.deviceID
	out[FieldDeviceType] = c.deviceType
	return out
}

func mergeQuery(q url.Values, payload map[string]any) url.Values {
	out := url.Values{}
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	for k, v := range payload {
		if _, exists := out[k]; !exists {
			out.Set(k, formValue(v))
		}
	}
	return out
}

func decodeEnvelope(raw []byte) *Response {
	resp := &Response{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		resp.Data = raw
		return resp
	}

	data, hasData := fields["data"]
	if !hasData {
		resp.Data = raw
	} else {
		resp.Data = data
	}
	if s, ok := fields["status"]; ok {
		_ = json.Unmarshal(s, &resp.Status)
	}
	if m, ok := fields["message"]; ok {
		var msg any
		if err := json.Unmarshal(m, &msg); err == nil && msg != nil {
			resp.Message = fmt.Sprint(msg)
		}
	}
	return resp
}

func unavailable(cause error) error {
	return internal.NewExternalError(http.StatusBadGateway, internal.FriendlyMessage(http.StatusBadGateway), internal.ErrCodeBackendUnavailable).WithCause(cause)
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
