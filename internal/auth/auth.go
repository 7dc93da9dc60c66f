package auth

import (
	"context"

	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/session"
)

// Headers identifying the browser and tab a request comes from.
const (
	HeaderBrowserID = "X-Browser-ID"
	HeaderTabID     = "X-Tab-ID"
)

type BackendAPI interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Tabs resolves the session store of a browser tab.
type Tabs interface {
	Tab(browserID, tabID string) *session.Store
	CloseTab(browserID, tabID string)
}

type ServiceAPI interface {
	Login(ctx context.Context, tab TabRef, dto LoginDTO) (*LoginResult, error)
	Logout(ctx context.Context, tab TabRef) error
	CurrentUser(ctx context.Context, tab TabRef) (*session.User, error)
	RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO) (string, error)
	VerifyResetCode(ctx context.Context, dto VerifyCodeDTO) (string, error)
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) (string, error)
}

// TabRef names one tab of one browser.
type TabRef struct {
	BrowserID string
	TabID     string
}

type LoginResult struct {
	SessionID   string           `json:"session_id"`
	User        session.User     `json:"user"`
	Permissions role.Permissions `json:"permissions"`
}

type ctxKey struct{}

// WithUser stores the session user of the request.
func WithUser(ctx context.Context, u *session.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (*session.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*session.User)
	return u, ok && u != nil
}

type tabKey struct{}

func WithTab(ctx context.Context, tab TabRef) context.Context {
	return context.WithValue(ctx, tabKey{}, tab)
}

func TabFromContext(ctx context.Context) (TabRef, bool) {
	tab, ok := ctx.Value(tabKey{}).(TabRef)
	return tab, ok
}

// ClearOnUnauthorized is the api client hook for a 401 outside the login
// call: it logs the calling tab out so its next request is sent to login.
func ClearOnUnauthorized(tabs Tabs) func(ctx context.Context) {
	return func(ctx context.Context) {
		tab, ok := TabFromContext(ctx)
		if !ok {
			return
		}
		_ = tabs.Tab(tab.BrowserID, tab.TabID).Logout(context.WithoutCancel(ctx))
	}
}
