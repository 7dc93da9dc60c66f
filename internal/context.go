package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserKey ctxKey = "userID"
	ContextTabKey  ctxKey = "tabID"
	ContextRoleKey ctxKey = "roleID"
)

// UserIDFromContext returns the logged-in backend user id, or 0 when absent.
func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if userID, ok := ctx.Value(ContextUserKey).(int64); ok {
		return userID
	}
	return 0
}

func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}

// RoleIDFromContext returns the numeric role of the logged-in user, or 0.
func RoleIDFromContext(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	if roleID, ok := ctx.Value(ContextRoleKey).(int); ok {
		return roleID
	}
	return 0
}

func ContextWithRoleID(ctx context.Context, roleID int) context.Context {
	return context.WithValue(ctx, ContextRoleKey, roleID)
}

func TabIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if tabID, ok := ctx.Value(ContextTabKey).(string); ok {
		return tabID
	}
	return ""
}

func ContextWithTabID(ctx context.Context, tabID string) context.Context {
	return context.WithValue(ctx, ContextTabKey, tabID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
