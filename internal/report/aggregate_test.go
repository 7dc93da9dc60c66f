package report_test

import (
	"bytes"
	"encoding/json"

	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/tracker"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
	"github.com/frahmantamala/billable-dashboard/internal/export"
	"github.com/frahmantamala/billable-dashboard/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func dailyRows(raw string) []tracker.DailyRow {
	var rows []tracker.DailyRow
	Expect(json.Unmarshal([]byte(raw), &rows)).To(Succeed())
	return rows
}

func monthlyRows(raw string) []tracker.MonthlyRow {
	var rows []tracker.MonthlyRow
	Expect(json.Unmarshal([]byte(raw), &rows)).To(Succeed())
	return rows
}

var _ = Describe("Daily aggregation", func() {
	It("skips absent values instead of counting them as zero", func() {
		board := report.NewDailyBoard()
		cards := board.Build(dailyRows(`[
			{"user_id": 7, "user_name": "Jane", "work_date": "2026-01-05", "assigned_hours": 4.5, "qc_score": 90, "trackers_count_day": 3},
			{"user_id": 7, "user_name": "Jane", "work_date": "2026-01-06", "assigned_hours": null, "qc_score": "", "trackers_count_day": null}
		]`))

		Expect(cards).To(HaveLen(1))
		footer := cards[0].Footer
		Expect(footer.AssignedHours.Display(report.HoursDecimals)).To(Equal("4.50"))
		Expect(footer.QCAverage.Display(report.ScoreDecimals)).To(Equal("90.00"))
		Expect(footer.TrackerCount.Display(report.CountDecimals)).To(Equal("3"))
		Expect(footer.WorkedHours.Display(report.HoursDecimals)).To(Equal("-"))
	})

	It("totals worked hours and tracker counts over defined values only", func() {
		board := report.NewDailyBoard()
		cards := board.Build(dailyRows(`[
			{"user_id": 3, "user_name": "Omar", "work_date": "2026-03-02", "total_billable_hours_day": "4.5", "trackers_count_day": 2},
			{"user_id": 3, "user_name": "Omar", "work_date": "2026-03-03", "total_billable_hours_day": null, "trackers_count_day": null}
		]`))

		Expect(cards).To(HaveLen(1))
		Expect(cards[0].Rows).To(HaveLen(2))
		footer := cards[0].Footer
		Expect(footer.WorkedHours.Display(report.HoursDecimals)).To(Equal("4.50"))
		Expect(footer.TrackerCount.Display(report.CountDecimals)).To(Equal("2"))
		Expect(cards[0].Rows[1].WorkedHours.Display(report.HoursDecimals)).To(Equal("-"))
	})

	It("averages QC only over numeric scores", func() {
		footer := report.DailyTotals([]report.DailyRow{
			{QCScore: flex.FloatOf(80)},
			{QCScore: flex.FloatOf("100")},
			{QCScore: flex.FloatOf("n/a")},
		})
		Expect(footer.QCAverage.Display(report.ScoreDecimals)).To(Equal("90.00"))
	})

	It("keeps cards of users who no longer have rows", func() {
		board := report.NewDailyBoard()
		board.Build(dailyRows(`[
			{"user_id": 1, "user_name": "Zed", "assigned_hours": 1},
			{"user_id": 2, "user_name": "amy", "assigned_hours": 2}
		]`))

		cards := board.Build(dailyRows(`[{"user_id": 1, "user_name": "Zed", "assigned_hours": 5}]`))
		Expect(cards).To(HaveLen(2))
		Expect(cards[0].User.UserName).To(Equal("amy"))
		Expect(cards[0].Rows).To(BeEmpty())
		Expect(cards[0].Footer.AssignedHours.Valid).To(BeFalse())
		Expect(cards[1].Footer.AssignedHours.Value).To(Equal(5.0))
		Expect(board.Known()).To(Equal(2))
	})

	It("drops rows without a user id", func() {
		board := report.NewDailyBoard()
		cards := board.Build(dailyRows(`[{"user_id": null, "assigned_hours": 1}, {"user_id": "x"}]`))
		Expect(cards).To(BeEmpty())
	})

	It("round-trips a card through the workbook", func() {
		board := report.NewDailyBoard()
		cards := board.Build(dailyRows(`[
			{"user_id": 7, "user_name": "Jane Doe", "work_date": "2026-01-05", "project_name": "Atlas", "task_name": "Tagging",
			 "assigned_hours": 8, "total_billable_hours_day": 7.5, "daily_required_hours": 8, "qc_score": 95, "trackers_count_day": 2},
			{"user_id": 7, "user_name": "Jane Doe", "work_date": "2026-01-06", "project_name": "Atlas", "task_name": "Review",
			 "assigned_hours": "6", "total_billable_hours_day": "6.25", "daily_required_hours": 8, "qc_score": null, "trackers_count_day": 1},
			{"user_id": 7, "user_name": "Jane Doe", "work_date": "2026-01-07", "project_name": "Atlas", "task_name": "",
			 "assigned_hours": 4, "total_billable_hours_day": 4, "daily_required_hours": 8, "qc_score": 85, "trackers_count_day": "3"}
		]`))
		Expect(cards).To(HaveLen(1))

		table := cards[0].Table()
		var buf bytes.Buffer
		Expect(export.Write(&buf, table)).To(Succeed())

		got, err := export.ReadSheet(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(5))
		Expect(got[0]).To(Equal([]string{"Date", "Project", "Task", "Assigned Hours", "Worked Hours", "Required Hours", "QC Score", "Trackers"}))
		Expect(got[1:4]).To(Equal(table.Rows))
		Expect(got[2][6]).To(Equal("-"))
		Expect(got[3][2]).To(Equal("-"))
		Expect(got[4]).To(Equal([]string{"TOTAL", "", "", "18.00", "17.75", "24.00", "90.00", "6"}))
	})
})

var _ = Describe("Monthly aggregation", func() {
	rows := `[
		{"user_id": 1, "user_name": "Ann", "team_name": "Ops", "month_year": "FEB2026", "total_billable_hours": 150, "monthly_total_target": 160, "pending_target": 10, "avg_qc_score": 92},
		{"user_id": 2, "user_name": "Ben", "team_name": "Ops", "month_year": "jan2026", "total_billable_hours": "120.5", "monthly_total_target": 160, "pending_target": "39.5", "avg_qc_score": null},
		{"user_id": 3, "user_name": "Cy", "team_name": "", "month_year": "", "total_billable_hours": 10},
		{"user_id": 1, "user_name": "Ann", "team_name": "Ops", "month_year": "JAN2026", "total_billable_hours": 140, "monthly_total_target": 160, "pending_target": 20, "avg_qc_score": 88}
	]`

	It("groups by month, oldest first and Unknown last", func() {
		cards := report.GroupMonthly(monthlyRows(rows))
		Expect(cards).To(HaveLen(3))
		Expect(cards[0].Key).To(Equal("JAN2026"))
		Expect(cards[0].Label).To(Equal("January 2026"))
		Expect(cards[0].Rows).To(HaveLen(2))
		Expect(cards[1].Key).To(Equal("FEB2026"))
		Expect(cards[2].Key).To(Equal(report.UnknownMonth))
		Expect(cards[2].Label).To(Equal(report.UnknownMonth))
	})

	It("totals each month", func() {
		jan := report.GroupMonthly(monthlyRows(rows))[0].Footer
		Expect(jan.BillableHours.Display(report.HoursDecimals)).To(Equal("260.50"))
		Expect(jan.MonthlyGoal.Display(report.HoursDecimals)).To(Equal("320.00"))
		Expect(jan.PendingTarget.Display(report.HoursDecimals)).To(Equal("59.50"))
		Expect(jan.QCAverage.Display(report.ScoreDecimals)).To(Equal("88.00"))
	})

	It("round-trips each month card through the workbook", func() {
		for _, card := range report.GroupMonthly(monthlyRows(rows))[:2] {
			table := card.Table()
			data, err := export.Bytes(table)
			Expect(err).NotTo(HaveOccurred())

			got, err := export.ReadSheet(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(got[1 : len(got)-1]).To(Equal(table.Rows))
			Expect(got[len(got)-1]).To(Equal(table.Total))
			Expect(got[len(got)-1][0]).To(Equal("TOTAL"))
		}
	})
})
