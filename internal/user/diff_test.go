package user_test

import (
	"errors"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildUpdatePayload", func() {
	device := user.Device{ID: "device-1", Type: "web"}

	var original user.Form

	BeforeEach(func() {
		original = agentForm()
		original.Password = ""
	})

	It("sends only a changed team id, as a number", func() {
		edited := original
		edited.TeamID = "7"

		payload, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(err).NotTo(HaveOccurred())
		Expect(payload).To(Equal(user.UpdatePayload{
			"user_id":     int64(9),
			"device_id":   "device-1",
			"device_type": "web",
			"team_id":     int64(7),
		}))
	})

	It("reports nothing changed for an identical form", func() {
		payload, err := user.BuildUpdatePayload(9, device, original, original)
		Expect(errors.Is(err, internal.ErrNothingChanged)).To(BeTrue())
		Expect(payload.Changed()).To(BeEmpty())
	})

	It("treats whitespace and number formatting as unchanged", func() {
		edited := original
		edited.Name = "  Jane Doe "
		edited.RoleID = "6.0"
		edited.Tenure = "1.50"

		_, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(errors.Is(err, internal.ErrNothingChanged)).To(BeTrue())
	})

	It("compares id lists regardless of order", func() {
		original.QAIDs = []int64{3, 1, 2}
		edited := original
		edited.QAIDs = []int64{1, 2, 3}

		_, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(errors.Is(err, internal.ErrNothingChanged)).To(BeTrue())

		edited.QAIDs = []int64{1, 2}
		payload, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(err).NotTo(HaveOccurred())
		Expect(payload).To(HaveKeyWithValue("qa_id", []int64{1, 2}))
	})

	It("never resends an unchanged or blank password", func() {
		original.Password = "abcde"
		edited := original

		_, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(errors.Is(err, internal.ErrNothingChanged)).To(BeTrue())

		edited.Password = "   "
		_, err = user.BuildUpdatePayload(9, device, original, edited)
		Expect(errors.Is(err, internal.ErrNothingChanged)).To(BeTrue())

		edited.Password = "new-secret"
		payload, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(err).NotTo(HaveOccurred())
		Expect(payload.Changed()).To(Equal([]string{"user_password"}))
	})

	It("coerces numeric fields", func() {
		edited := original
		edited.RoleID = "5"
		edited.Tenure = "0.5"
		edited.DesignationID = ""

		payload, err := user.BuildUpdatePayload(9, device, original, edited)
		Expect(err).NotTo(HaveOccurred())
		Expect(payload).To(HaveKeyWithValue("role_id", int64(5)))
		Expect(payload).To(HaveKeyWithValue("user_tenure", 0.5))
		Expect(payload).To(HaveKeyWithValue("designation_id", BeNil()))
	})
})
