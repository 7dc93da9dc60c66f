package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/auth"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const secret = "0123456789abcdef0123456789abcdef"

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		backend  *mockBackend
		registry *session.Registry
		service  *auth.Service
		tabA     auth.TabRef
		tabB     auth.TabRef
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		backend = newMockBackend()
		registry = session.NewRegistry(session.NewSigner(secret, 0), nil, logger)
		service = auth.NewService(backend, registry, logger)
		tabA = auth.TabRef{BrowserID: "browser-1", TabID: "a"}
		tabB = auth.TabRef{BrowserID: "browser-1", TabID: "b"}
	})

	Describe("Login", func() {
		It("opens a session from a flat login response", func() {
			backend.responses[apiclient.PathAuthUser] = `{"user_id": "7", "user_name": " Jane ", "user_email": "jane@example.com",
				"role_id": "6", "team_id": 4, "is_active": 1, "token": "tok-7"}`

			result, err := service.Login(ctx, tabA, auth.LoginDTO{Email: "jane@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SessionID).NotTo(BeEmpty())
			Expect(result.User.Name).To(Equal("Jane"))
			Expect(result.User.Role).To(Equal(role.Agent))
			Expect(result.User.Token).To(Equal("tok-7"))
			Expect(result.Permissions.CanManageUsers).To(BeFalse())

			req := backend.requests[0]
			Expect(req.Anonymous).To(BeTrue())
			Expect(req.Body).To(HaveKeyWithValue("user_email", "jane@example.com"))
		})

		It("reads a nested user and normalizes the role", func() {
			backend.responses[apiclient.PathAuthUser] = `{"access_token": "tok-1", "user": {"user_id": 1, "role_id": 1, "is_active": "1"}}`

			result, err := service.Login(ctx, tabA, auth.LoginDTO{Email: "root@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.User.Role).To(Equal(role.SuperAdmin))
			Expect(result.User.Token).To(Equal("tok-1"))
			Expect(result.Permissions.IsSuperAdmin).To(BeTrue())
			Expect(result.Permissions.CanManageProjects).To(BeTrue())
		})

		It("logs out the browser's other tab", func() {
			backend.responses[apiclient.PathAuthUser] = `{"user_id": 7, "role_id": 6, "token": "t"}`

			_, err := service.Login(ctx, tabB, auth.LoginDTO{Email: "jane@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Login(ctx, tabA, auth.LoginDTO{Email: "jane@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CurrentUser(ctx, tabB)
			Expect(errors.Is(err, internal.ErrSessionReplaced)).To(BeTrue())
			u, err := service.CurrentUser(ctx, tabA)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.UserID).To(Equal(int64(7)))
		})

		It("rejects inactive users", func() {
			backend.responses[apiclient.PathAuthUser] = `{"user_id": 7, "role_id": 6, "is_active": 0}`
			_, err := service.Login(ctx, tabA, auth.LoginDTO{Email: "jane@example.com", Password: "secret1"})
			Expect(errors.Is(err, internal.ErrUserInactive)).To(BeTrue())
		})

		It("passes backend credential errors through", func() {
			backend.errs[apiclient.PathAuthUser] = internal.NewExternalError(http.StatusUnauthorized, "Wrong password", internal.ErrCodeInvalidCredentials)
			_, err := service.Login(ctx, tabA, auth.LoginDTO{Email: "jane@example.com", Password: "nope"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Wrong password"))
			Expect(service.CurrentUser(ctx, tabA)).Error().To(HaveOccurred())
		})

		It("validates the form before calling the backend", func() {
			_, err := service.Login(ctx, tabA, auth.LoginDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Details.(internal.ValidationErrors).FieldMessages()).To(HaveLen(2))
			Expect(backend.requests).To(BeEmpty())
		})
	})

	Describe("Logout", func() {
		It("clears the tab and releases it from the registry", func() {
			backend.responses[apiclient.PathAuthUser] = `{"user_id": 7, "role_id": 6, "token": "t"}`

			_, err := service.Login(ctx, tabA, auth.LoginDTO{Email: "jane@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Tabs(tabA.BrowserID)).To(Equal(1))

			Expect(service.Logout(ctx, tabA)).To(Succeed())
			Expect(registry.Tabs(tabA.BrowserID)).To(BeZero())

			_, err = service.CurrentUser(ctx, tabA)
			Expect(errors.Is(err, internal.ErrSessionMissing)).To(BeTrue())
		})
	})

	Describe("password reset", func() {
		It("forwards each step anonymously", func() {
			_, err := service.RequestPasswordReset(ctx, auth.PasswordResetRequestDTO{Email: "jane@example.com"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.VerifyResetCode(ctx, auth.VerifyCodeDTO{Email: "jane@example.com", OTP: "1234"})
			Expect(err).NotTo(HaveOccurred())
			msg, err := service.ResetPassword(ctx, auth.ResetPasswordDTO{Email: "jane@example.com", OTP: "1234", NewPassword: "brand-new"})
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("done"))

			Expect(backend.requests).To(HaveLen(3))
			Expect(backend.requests[0].Path).To(Equal(apiclient.PathPasswordResetRequest))
			Expect(backend.requests[1].Path).To(Equal(apiclient.PathPasswordResetVerify))
			Expect(backend.requests[2].Path).To(Equal(apiclient.PathPasswordResetConfirm))
			for _, req := range backend.requests {
				Expect(req.Anonymous).To(BeTrue())
			}
		})

		It("rejects a short new password", func() {
			_, err := service.ResetPassword(ctx, auth.ResetPasswordDTO{Email: "jane@example.com", OTP: "1", NewPassword: "12345"})
			Expect(err).To(MatchError("Password must be between 6 and 50 characters"))
		})

		It("rejects a malformed email", func() {
			_, err := service.RequestPasswordReset(ctx, auth.PasswordResetRequestDTO{Email: "jane"})
			Expect(err).To(MatchError("Please enter a valid email address"))
		})
	})

	It("logs the tab out on a backend 401", func() {
		backend.responses[apiclient.PathAuthUser] = `{"user_id": 7, "role_id": 6}`
		_, err := service.Login(ctx, tabA, auth.LoginDTO{Email: "jane@example.com", Password: "secret1"})
		Expect(err).NotTo(HaveOccurred())

		auth.ClearOnUnauthorized(registry)(auth.WithTab(ctx, tabA))
		_, err = service.CurrentUser(ctx, tabA)
		Expect(errors.Is(err, internal.ErrSessionMissing)).To(BeTrue())
	})
})
