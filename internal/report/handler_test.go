package report_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/export"
	"github.com/frahmantamala/billable-dashboard/internal/report"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		backend *mockBackend
		router  chi.Router
	)

	BeforeEach(func() {
		backend = newMockBackend()
		backend.responses[apiclient.PathTrackerViewDaily] = dailyJSON
		backend.responses[apiclient.PathMonthlyTrackerList] = `[
			{"user_id": 7, "user_name": "Jane", "month_year": "JAN2026", "total_billable_hours": 120},
			{"user_id": 7, "user_name": "Jane", "month_year": "FEB2026", "total_billable_hours": 100}
		]`
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		h := report.NewHandler(report.NewService(backend, nil, logger))

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := internal.ContextWithUserID(r.Context(), 1)
				ctx = internal.ContextWithRoleID(ctx, int(role.Admin))
				ctx = internal.ContextWithTabID(ctx, "tab-1")
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Route("/reports", h.Routes)
	})

	serve := func(method, target string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("returns the daily board", func() {
		rec := serve(http.MethodGet, "/reports/daily?month=2026-01", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var view report.DailyView
		Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
		Expect(view.Cards).To(HaveLen(2))
	})

	It("exports one user card named after the user", func() {
		rec := serve(http.MethodGet, "/reports/daily/export?user_id=7&month=2026-01", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="Jane_billable_report.xlsx"`))

		rows, err := export.ReadSheet(bytes.NewReader(rec.Body.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[1][0]).To(Equal("2026-01-05"))
		Expect(rows[2][0]).To(Equal("TOTAL"))
	})

	It("requires a user for the daily export", func() {
		rec := serve(http.MethodGet, "/reports/daily/export", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("exports the requested month", func() {
		rec := serve(http.MethodGet, "/reports/monthly/export?key=feb2026", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("February_2026_billable_report.xlsx"))
	})

	It("returns 404 when the month has no card", func() {
		rec := serve(http.MethodGet, "/reports/monthly/export?key=MAR2026", nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects an invalid QC edit", func() {
		rec := serve(http.MethodPost, "/reports/qc", []byte(`{"tracker_id": 1, "qc_score": -1}`))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
