package user_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/media"
	"github.com/frahmantamala/billable-dashboard/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const usersJSON = `[
	{"user_id": 2, "user_name": "bob Smith", "user_email": "bob@example.com", "role_id": "6", "team_id": 4,
	 "project_manager_id": [10], "asst_manager_id": "11", "qa_id": [12], "user_tenure": "2", "is_active": 1},
	{"user_id": 1, "user_name": "Alice Jones", "user_email": "alice@example.com", "role_id": 2, "team_id": "5",
	 "project_manager_id": null, "asst_manager_id": [], "qa_id": [], "user_tenure": "", "is_active": 0,
	 "user_creation_permission": 1},
	{"user_id": 3, "user_name": "Carol", "user_email": "carol@corp.io", "role_id": 5, "team_id": 4, "is_active": "1"}
]`

var ctx = context.Background

var _ = Describe("Service", func() {
	var (
		backend *mockBackend
		service *user.Service
	)

	BeforeEach(func() {
		backend = newMockBackend()
		backend.responses[apiclient.PathUserList] = usersJSON
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(backend, user.Device{ID: "device-1", Type: "web"}, logger)
	})

	Describe("List", func() {
		It("normalizes records and sorts by name", func() {
			users, err := service.List(ctx(), user.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(3))
			Expect(users[0].Name).To(Equal("Alice Jones"))
			Expect(users[1].Name).To(Equal("bob Smith"))
			Expect(users[2].Name).To(Equal("Carol"))

			bob := users[1]
			Expect(bob.Role).To(Equal(role.Agent))
			Expect(bob.AsstManagerIDs).To(Equal([]int64{11}))
			Expect(bob.Tenure.Value).To(Equal(2.0))

			alice := users[0]
			Expect(alice.ProjectManagerIDs).To(BeEmpty())
			Expect(alice.Tenure.Valid).To(BeFalse())
			Expect(alice.Permissions().CanManageUsers).To(BeTrue())
		})

		It("filters by search, team and active flag", func() {
			active := true
			users, err := service.List(ctx(), user.Filter{Search: "EXAMPLE", TeamID: 4, Active: &active})
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
			Expect(users[0].ID).To(Equal(int64(2)))
		})

		It("normalizes a single object response", func() {
			backend.responses[apiclient.PathUserList] = `{"user_id": 8, "user_name": "Solo"}`
			users, err := service.List(ctx(), user.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
		})
	})

	Describe("Create", func() {
		It("returns field errors without calling the backend", func() {
			form := agentForm()
			form.Password = "abcde"
			_, err := service.Create(ctx(), form, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Details.(internal.ValidationErrors).FieldMessages()).To(HaveKey(user.FieldPassword))
			Expect(backend.calls).To(BeEmpty())
		})

		It("posts a multipart form with the picture", func() {
			form := agentForm()
			form.RoleID = "4"
			pic := &media.Picture{Name: "me.jpg", ContentType: "image/jpeg", Data: []byte{1, 2}}

			_, err := service.Create(ctx(), form, pic)
			Expect(err).NotTo(HaveOccurred())

			calls := backend.callsTo(apiclient.PathAuthUser)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Files).To(HaveLen(1))
			Expect(calls[0].Files[0].Field).To(Equal("profile_picture"))
			Expect(calls[0].Body).To(HaveKeyWithValue("role_id", int64(4)))
			Expect(calls[0].Body).To(HaveKeyWithValue("project_manager_id", []int64{10}))
			Expect(calls[0].Body).To(HaveKeyWithValue("asst_manager_id", []int64{}))
			Expect(calls[0].Body).NotTo(HaveKey("user_tenure"))
		})
	})

	Describe("Update", func() {
		It("makes no network call when nothing changed", func() {
			original := user.FormFromUser(&user.User{ID: 2, Name: "bob Smith", Role: role.Agent, TeamID: 4})
			_, err := service.Update(ctx(), 2, user.UpdateRequest{Original: &original, Edited: original}, nil)
			Expect(errors.Is(err, internal.ErrNothingChanged)).To(BeTrue())
			Expect(backend.calls).To(BeEmpty())
		})

		It("loads the snapshot when none is given and sends the diff", func() {
			users, err := service.List(ctx(), user.Filter{})
			Expect(err).NotTo(HaveOccurred())
			edited := user.FormFromUser(users[1])
			edited.TeamID = "5"
			backend.calls = nil

			_, err = service.Update(ctx(), 2, user.UpdateRequest{Edited: edited}, nil)
			Expect(err).NotTo(HaveOccurred())

			updates := backend.callsTo(apiclient.PathUserUpdate)
			Expect(updates).To(HaveLen(1))
			Expect(updates[0].Body).To(HaveLen(4))
			Expect(updates[0].Body).To(HaveKeyWithValue("team_id", int64(5)))
		})

		It("sends a new picture even when no field changed", func() {
			original := user.FormFromUser(&user.User{ID: 2, Name: "bob Smith"})
			pic := &media.Picture{Name: "me.jpg", ContentType: "image/jpeg", Data: []byte{1}}
			_, err := service.Update(ctx(), 2, user.UpdateRequest{Original: &original, Edited: original}, pic)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.callsTo(apiclient.PathUserUpdate)[0].Files).To(HaveLen(1))
		})

		It("bounds a changed password", func() {
			original := user.FormFromUser(&user.User{ID: 2, Name: "bob Smith"})
			edited := original
			edited.Password = "abc"
			_, err := service.Update(ctx(), 2, user.UpdateRequest{Original: &original, Edited: edited}, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(backend.calls).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("requires confirmation", func() {
			_, err := service.Delete(ctx(), 2, false)
			Expect(errors.Is(err, internal.ErrConfirmRequired)).To(BeTrue())
			Expect(backend.calls).To(BeEmpty())
		})

		It("posts the user id once confirmed", func() {
			_, err := service.Delete(ctx(), 2, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.callsTo(apiclient.PathUserDelete)[0].Body).To(HaveKeyWithValue("user_id", int64(2)))
		})
	})

	Describe("Permissions", func() {
		It("toggles active as a 0/1 flag", func() {
			_, err := service.ToggleActive(ctx(), 3, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.callsTo(apiclient.PathUserUpdate)[0].Body).To(HaveKeyWithValue("is_active", 0))
		})

		It("sends only the flags given", func() {
			yes := true
			_, err := service.UpdatePermission(ctx(), user.PermissionUpdate{UserID: 3, ProjectCreationPermission: &yes})
			Expect(err).NotTo(HaveOccurred())
			body := backend.callsTo(apiclient.PathPermissionUpdate)[0].Body
			Expect(body).To(HaveKeyWithValue("project_creation_permission", 1))
			Expect(body).NotTo(HaveKey("user_creation_permission"))
		})

		It("decodes the permission list", func() {
			backend.responses[apiclient.PathPermissionUserList] = `[{"user_id": "3", "user_name": "Carol", "role_id": 5, "user_creation_permission": "1"}]`
			entries, err := service.PermissionList(ctx())
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].UserCreationPermission).To(BeTrue())
			Expect(entries[0].Role).To(Equal(role.QAAgent))
		})
	})
})
