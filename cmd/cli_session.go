package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/auth"
	"github.com/frahmantamala/billable-dashboard/internal/session"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/google/uuid"
)

var (
	cliEmail    string
	cliPassword string
)

// cliSession is one logged-in command line run against the backend.
type cliSession struct {
	Config *internal.Config
	Client *apiclient.Client
	User   *session.User
}

// loginCLI logs in with the --email/--password flags (or BILLABLE_EMAIL and
// BILLABLE_PASSWORD) through the same path as the BFF and returns a context
// carrying the session identity.
func loginCLI(ctx context.Context) (context.Context, *cliSession, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	email, password := cliEmail, cliPassword
	if email == "" {
		email = os.Getenv("BILLABLE_EMAIL")
	}
	if password == "" {
		password = os.Getenv("BILLABLE_PASSWORD")
	}

	client := newBackendClient(cfg, lg)
	registry := session.NewRegistry(session.NewSigner(cfg.Security.BroadcastSecret, 0), nil, lg)
	tab := auth.TabRef{BrowserID: "cli", TabID: uuid.NewString()}

	result, err := auth.NewService(client, registry, lg).Login(ctx, tab, auth.LoginDTO{Email: email, Password: password})
	if err != nil {
		return nil, nil, err
	}

	u := result.User
	ctx = internal.ContextWithTabID(ctx, tab.TabID)
	ctx = internal.ContextWithUserID(ctx, u.UserID)
	ctx = internal.ContextWithRoleID(ctx, int(u.Role))
	ctx = apiclient.WithIdentity(ctx, apiclient.Identity{Token: u.Token, UserID: u.UserID})

	return ctx, &cliSession{Config: cfg, Client: client, User: &u}, nil
}
