package rest_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/frahmantamala/billable-dashboard/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Router", func() {
	var (
		router *chi.Mux
		mock   sqlmock.Sqlmock
		db     *sqlx.DB
	)

	BeforeEach(func() {
		rawDB, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		Expect(err).NotTo(HaveOccurred())
		mock = m
		db = sqlx.NewDb(rawDB, "pgx")

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, db, rest.Handlers{}, rest.RouterConfig{AllowedOrigins: "http://app.local"}, logger)
	})

	AfterEach(func() {
		db.Close()
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Describe("health", func() {
		It("reports a reachable session store", func() {
			mock.ExpectPing()

			rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp rest.HealthResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(rest.HealthHealthy))
			Expect(resp.Components).To(HaveKey("postgres"))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("answers 503 when the ping fails", func() {
			mock.ExpectPing().WillReturnError(errors.New("connection refused"))

			rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

			var resp rest.HealthResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Components["postgres"].Message).To(Equal("connection refused"))
		})
	})

	It("answers ping", func() {
		rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"OK"`))
	})

	It("serves the embedded OpenAPI document", func() {
		rec := serve(httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})

	It("tags responses with a trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("X-Trace-ID", "trace-1")
		rec := serve(req)
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-1"))
	})

	Describe("CORS", func() {
		It("answers preflight for an allowed origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports/daily", nil)
			req.Header.Set("Origin", "http://app.local")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)

			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://app.local"))
			Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring("X-Tab-ID"))
		})

		It("does not tag other origins", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
			req.Header.Set("Origin", "http://evil.local")
			rec := serve(req)
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})
	})
})
