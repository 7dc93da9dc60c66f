package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/billable-dashboard/api"
	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/auth"
	"github.com/frahmantamala/billable-dashboard/internal/dashboard"
	"github.com/frahmantamala/billable-dashboard/internal/project"
	"github.com/frahmantamala/billable-dashboard/internal/report"
	"github.com/frahmantamala/billable-dashboard/internal/session"
	sessionRepo "github.com/frahmantamala/billable-dashboard/internal/session/postgres"
	"github.com/frahmantamala/billable-dashboard/internal/transport/rest"
	"github.com/frahmantamala/billable-dashboard/internal/user"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the backend-for-frontend HTTP server`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Handlers rest.Handlers
	Registry *session.Registry
	Sessions *sessionRepo.Repository
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB, deps.Handlers, rest.RouterConfig{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
	}, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "backend", deps.Config.Backend.BaseURL)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go deps.Registry.Sweep(sweepCtx, deps.Config.Security.SweepInterval(), deps.Config.Security.IdleTTL(),
		func(ctx context.Context, before time.Time) {
			n, err := deps.Sessions.Purge(ctx, before)
			if err != nil {
				deps.Logger.Error("failed to purge idle tab sessions", "error", err)
				return
			}
			if n > 0 {
				deps.Logger.Info("purged idle tab sessions", "rows", n)
			}
		})

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		stopSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)

	if _, err := api.Load(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(db, lg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sessions := sessionRepo.NewRepository(gdb)
	registry := session.NewRegistry(
		session.NewSigner(config.Security.BroadcastSecret, 0),
		sessions.ForTab,
		lg,
		session.WithSignalTTL(config.Security.BroadcastTTL),
	)

	client := newBackendClient(config, lg)
	client.OnUnauthorized = auth.ClearOnUnauthorized(registry)

	generations := apiclient.NewGenerations()
	reportService := report.NewService(client, generations, lg)
	dashboardService := dashboard.NewService(client, generations, lg)
	registry.Watch(func(_, tabID string, ev session.Event) {
		if ev.Kind != session.EventLogin {
			reportService.Forget(tabID)
			dashboardService.Forget(tabID)
		}
	})

	handlers := rest.Handlers{
		Auth:      auth.NewHandler(auth.NewService(client, registry, lg)),
		User:      user.NewHandler(user.NewService(client, user.Device{ID: config.Backend.DeviceID, Type: config.Backend.DeviceType}, lg)),
		Report:    report.NewHandler(reportService),
		Project:   project.NewHandler(project.NewService(client, lg)),
		Dashboard: dashboard.NewHandler(dashboardService),
	}

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Registry: registry,
		Sessions: sessions,
	}, nil
}

func newBackendClient(config *internal.Config, lg *slog.Logger) *apiclient.Client {
	return apiclient.NewClient(apiclient.Config{
		BaseURL:        config.Backend.BaseURL,
		RequestTimeout: config.Backend.RequestTimeout,
		DeviceID:       config.Backend.DeviceID,
		DeviceType:     config.Backend.DeviceType,
	}, lg)
}
