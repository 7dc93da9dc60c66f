package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/billable-dashboard/api"
	"github.com/frahmantamala/billable-dashboard/internal/auth"
	"github.com/frahmantamala/billable-dashboard/internal/dashboard"
	"github.com/frahmantamala/billable-dashboard/internal/project"
	"github.com/frahmantamala/billable-dashboard/internal/report"
	"github.com/frahmantamala/billable-dashboard/internal/transport/middleware"
	"github.com/frahmantamala/billable-dashboard/internal/transport/swagger"
	"github.com/frahmantamala/billable-dashboard/internal/user"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
)

// Handlers groups the module handlers mounted by RegisterAllRoutes. A nil
// handler leaves its routes out.
type Handlers struct {
	Auth      *auth.Handler
	User      *user.Handler
	Report    *report.Handler
	Project   *project.Handler
	Dashboard *dashboard.Handler
}

type RouterConfig struct {
	AllowedOrigins string
	Checker        auth.PermissionChecker
}

func RegisterAllRoutes(router chi.Router, db *sqlx.DB, handlers Handlers, config RouterConfig, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	checker := config.Checker
	if checker == nil {
		checker = auth.NewPermissionChecker()
	}

	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI document and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(api.Document)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if handlers.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Group(func(pub chi.Router) {
				pub.Use(handlers.Auth.TabMiddleware)
				handlers.Auth.PublicRoutes(pub)
			})
			ar.Group(func(pr chi.Router) {
				pr.Use(handlers.Auth.AuthMiddleware)
				handlers.Auth.Routes(pr)
			})
		})

		// Protected routes that require a tab session
		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.AuthMiddleware)

			if handlers.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Use(middleware.RequireCapabilities(checker, logger, auth.CapManageUsers, auth.CapSuperAdmin))
					handlers.User.Routes(ur)
				})
			}

			if handlers.Report != nil {
				pr.Route("/reports", handlers.Report.Routes)
			}

			if handlers.Project != nil {
				handlers.Project.Routes(pr)
			}

			if handlers.Dashboard != nil {
				pr.Route("/dashboard", handlers.Dashboard.Routes)
			}
		})
	})
}
