package user_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/transport"
	"github.com/frahmantamala/billable-dashboard/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		backend *mockBackend
		router  *chi.Mux
	)

	BeforeEach(func() {
		backend = newMockBackend()
		backend.responses[apiclient.PathUserList] = usersJSON
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := user.NewService(backend, user.Device{ID: "device-1", Type: "web"}, logger)
		handler := user.NewHandler(service)
		handler.BaseHandler = &transport.BaseHandler{Logger: logger}

		router = chi.NewRouter()
		router.Route("/users", handler.Routes)
	})

	send := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("lists users with filters", func() {
		rec := send(http.MethodGet, "/users?role_id=6", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp struct {
			Users []user.User `json:"users"`
			Total int         `json:"total"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Total).To(Equal(1))
		Expect(resp.Users[0].Name).To(Equal("bob Smith"))
	})

	It("returns field errors on create", func() {
		form := agentForm()
		form.Password = "abcde"
		rec := send(http.MethodPost, "/users", form)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("user_password"))
	})

	It("answers an unchanged update with a notice", func() {
		original := agentForm()
		rec := send(http.MethodPatch, "/users/2", user.UpdateRequest{Original: &original, Edited: original})
		Expect(rec.Code).To(Equal(http.StatusOK))

		var notice transport.NoticeResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &notice)).To(Succeed())
		Expect(notice.Notice).To(Equal("No changes detected"))
		Expect(backend.callsTo(apiclient.PathUserUpdate)).To(BeEmpty())
	})

	It("rejects a delete without confirmation", func() {
		rec := send(http.MethodDelete, "/users/2", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = send(http.MethodDelete, "/users/2?confirm=true", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("serves the visibility map", func() {
		rec := send(http.MethodGet, "/users/visibility?role_id=3", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"tenure":{"visible":false,"required":false}`))
	})

	It("returns 404 for an unknown user", func() {
		rec := send(http.MethodGet, "/users/99", nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
