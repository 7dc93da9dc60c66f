package project_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/project"
	projectSvc "github.com/frahmantamala/billable-dashboard/internal/project"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		backend *mockBackend
		service *projectSvc.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newMockBackend()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = projectSvc.NewService(backend, logger)
	})

	Describe("Dropdown", func() {
		It("reads kind specific columns and sorts by label", func() {
			backend.responses["teams"] = `[{"team_id": "2", "team_name": "ops"}, {"team_id": 1, "team_name": "Data"}, {"team_name": "no id"}]`

			options, err := service.Dropdown(ctx, projectSvc.KindTeams, projectSvc.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(Equal([]project.Option{{ID: 1, Label: "Data"}, {ID: 2, Label: "ops"}}))
		})

		It("accepts a single object and generic columns", func() {
			backend.responses["designations"] = `{"id": 4, "designation": "Analyst"}`
			options, err := service.Dropdown(ctx, projectSvc.KindDesignations, projectSvc.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(Equal([]project.Option{{ID: 4, Label: "Analyst"}}))
		})

		It("returns an empty list for null data", func() {
			options, err := service.Dropdown(ctx, projectSvc.KindTasks, projectSvc.Query{ProjectID: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(BeEmpty())
			Expect(backend.requests[0].Body).To(HaveKeyWithValue("project_id", int64(3)))
		})

		It("rejects unknown types without calling the backend", func() {
			_, err := service.Dropdown(ctx, projectSvc.Kind("planets"), projectSvc.Query{})
			Expect(err).To(HaveOccurred())
			Expect(backend.requests).To(BeEmpty())
		})
	})

	It("lists projects with their tasks", func() {
		backend.responses["projects"] = `[
			{"project_id": 1, "project_name": "Atlas", "project_team_id": "4,5", "asst_project_manager_id": null,
			 "tasks": [{"task_id": 10, "task_name": "Tagging", "task_target": "40"}, {"task_name": "orphan"}]},
			{"project_name": "no id"}
		]`

		projects, err := service.Projects(ctx, projectSvc.Query{})
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(HaveLen(1))
		Expect(projects[0].TeamIDs).To(Equal([]int64{4, 5}))
		Expect(projects[0].AsstManagerIDs).To(BeEmpty())
		Expect(projects[0].Tasks).To(HaveLen(1))
		Expect(projects[0].Tasks[0].Target.Value).To(Equal(40.0))
	})

	Describe("FormOptions", func() {
		It("loads every list and users by role", func() {
			backend.responses["teams"] = `[{"team_id": 1, "team_name": "Ops"}]`
			backend.responses["designations"] = `[{"designation_id": 2, "designation_name": "Analyst"}]`
			backend.responses["users:3"] = `[{"user_id": 30, "user_name": "Pam"}]`
			backend.responses["users:4"] = `[{"user_id": 40, "user_name": "Al"}]`
			backend.responses["users:5"] = `[{"user_id": 50, "user_name": "Quinn"}]`

			opts, err := service.FormOptions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Errors).To(BeEmpty())
			Expect(opts.Teams).To(Equal([]project.Option{{ID: 1, Label: "Ops"}}))
			Expect(opts.ProjectManagers).To(Equal([]project.Option{{ID: 30, Label: "Pam"}}))
			Expect(opts.AssistantManagers).To(Equal([]project.Option{{ID: 40, Label: "Al"}}))
			Expect(opts.QualityAnalysts).To(Equal([]project.Option{{ID: 50, Label: "Quinn"}}))
			Expect(backend.requests).To(HaveLen(5))
		})

		It("reports a failing list and keeps the rest", func() {
			backend.responses["teams"] = `[{"team_id": 1, "team_name": "Ops"}]`
			backend.errs["designations"] = internal.NewExternalError(http.StatusBadGateway, "Designations unavailable", internal.ErrCodeBackendUnavailable)

			opts, err := service.FormOptions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Errors).To(Equal(map[string]string{"designations": "Designations unavailable"}))
			Expect(opts.Designations).To(BeEmpty())
			Expect(opts.Teams).To(HaveLen(1))
		})
	})
})
