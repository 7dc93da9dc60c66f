package user_test

import (
	"github.com/frahmantamala/billable-dashboard/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func agentForm() user.Form {
	return user.Form{
		Name:              "Jane Doe",
		Email:             "jane@example.com",
		Phone:             "0812345678",
		Password:          "secret1",
		RoleID:            "6",
		DesignationID:     "2",
		TeamID:            "4",
		ProjectManagerIDs: []int64{10},
		AsstManagerIDs:    []int64{11},
		QAIDs:             []int64{12},
		Tenure:            "1.5",
	}
}

var _ = Describe("ValidateForm", func() {
	It("accepts a complete agent form", func() {
		Expect(user.ValidateForm(agentForm(), user.ModeCreate)).To(BeEmpty())
	})

	It("rejects a five character password in create mode", func() {
		form := agentForm()
		form.Password = "abcde"
		errs := user.ValidateForm(form, user.ModeCreate)
		Expect(errs).To(HaveKeyWithValue(user.FieldPassword, "Password must be between 6 and 50 characters"))
	})

	It("does not validate in edit mode", func() {
		form := agentForm()
		form.Password = "abcde"
		form.Name = ""
		Expect(user.ValidateForm(form, user.ModeEdit)).To(BeEmpty())
	})

	It("checks the name rules", func() {
		form := agentForm()
		form.Name = "Jo"
		Expect(user.ValidateForm(form, user.ModeCreate)).To(HaveKeyWithValue(user.FieldName, "Name must be at least 3 characters"))

		form.Name = "J4ne"
		Expect(user.ValidateForm(form, user.ModeCreate)).To(HaveKeyWithValue(user.FieldName, "Name can only contain letters and spaces"))

		form.Name = "   "
		Expect(user.ValidateForm(form, user.ModeCreate)).To(HaveKeyWithValue(user.FieldName, "Name is required"))
	})

	It("checks email and phone", func() {
		form := agentForm()
		form.Email = "jane@example"
		form.Phone = "12345"
		errs := user.ValidateForm(form, user.ModeCreate)
		Expect(errs).To(HaveKeyWithValue(user.FieldEmail, "Please enter a valid email address"))
		Expect(errs).To(HaveKeyWithValue(user.FieldPhone, "Phone number must be exactly 10 digits"))

		form.Phone = ""
		Expect(user.ValidateForm(form, user.ModeCreate)).NotTo(HaveKey(user.FieldPhone))
	})

	It("requires the dropdown selections", func() {
		form := agentForm()
		form.DesignationID = ""
		form.TeamID = ""
		errs := user.ValidateForm(form, user.ModeCreate)
		Expect(errs).To(HaveKeyWithValue(user.FieldDesignationID, "Designation is required"))
		Expect(errs).To(HaveKeyWithValue(user.FieldTeamID, "Team is required"))
	})

	DescribeTable("tenure bounds for agents",
		func(tenure string, valid bool) {
			form := agentForm()
			form.Tenure = tenure
			errs := user.ValidateForm(form, user.ModeCreate)
			if valid {
				Expect(errs).NotTo(HaveKey(user.FieldTenure))
			} else {
				Expect(errs).To(HaveKey(user.FieldTenure))
			}
		},
		Entry("zero", "0", false),
		Entry("negative", "-1", false),
		Entry("fraction", "0.1", true),
		Entry("blank", "", false),
		Entry("text", "two", false),
	)

	It("ignores tenure for roles other than agent", func() {
		form := agentForm()
		form.RoleID = "5"
		form.Tenure = "0"
		form.QAIDs = nil
		Expect(user.ValidateForm(form, user.ModeCreate)).To(BeEmpty())
	})

	It("requires hierarchy lists the role shows", func() {
		form := agentForm()
		form.RoleID = "4"
		form.ProjectManagerIDs = nil
		form.AsstManagerIDs = nil
		form.QAIDs = nil
		errs := user.ValidateForm(form, user.ModeCreate)
		Expect(errs).To(HaveKeyWithValue(user.FieldProjectManagerIDs, "Please select at least one project manager"))
		Expect(errs).NotTo(HaveKey(user.FieldAsstManagerIDs))
		Expect(errs).NotTo(HaveKey(user.FieldQAIDs))

		form.RoleID = "3"
		Expect(user.ValidateForm(form, user.ModeCreate)).To(BeEmpty())
	})
})

var _ = Describe("FormState", func() {
	It("shows no errors before the first submit", func() {
		state := user.NewFormState(user.ModeCreate, user.Form{})
		state.SetField(user.FieldName, "x")
		Expect(state.Errors).To(BeEmpty())
	})

	It("clears a field's error as soon as it is fixed", func() {
		form := agentForm()
		form.Name = ""
		form.Email = "bad"
		state := user.NewFormState(user.ModeCreate, form)

		Expect(state.Submit()).To(BeFalse())
		Expect(state.Errors).To(HaveKey(user.FieldName))
		Expect(state.Errors).To(HaveKey(user.FieldEmail))

		state.SetField(user.FieldName, "Jane Doe")
		Expect(state.Errors).NotTo(HaveKey(user.FieldName))
		Expect(state.Errors).To(HaveKey(user.FieldEmail))

		state.SetField(user.FieldEmail, "still bad")
		Expect(state.Errors).To(HaveKeyWithValue(user.FieldEmail, "Please enter a valid email address"))
	})

	It("drops hierarchy errors when the role hides them", func() {
		form := agentForm()
		form.QAIDs = nil
		form.Tenure = ""
		state := user.NewFormState(user.ModeCreate, form)
		Expect(state.Submit()).To(BeFalse())
		Expect(state.Errors).To(HaveKey(user.FieldQAIDs))
		Expect(state.Errors).To(HaveKey(user.FieldTenure))

		state.SetField(user.FieldRoleID, "4")
		Expect(state.Errors).NotTo(HaveKey(user.FieldQAIDs))
		Expect(state.Errors).NotTo(HaveKey(user.FieldTenure))
	})
})

var _ = Describe("ValidatePasswordChange", func() {
	It("treats blank as unchanged", func() {
		Expect(user.ValidatePasswordChange("")).To(BeEmpty())
	})

	It("bounds a new password", func() {
		Expect(user.ValidatePasswordChange("abc")).To(HaveKey(user.FieldPassword))
		Expect(user.ValidatePasswordChange("abcdef")).To(BeEmpty())
	})
})
