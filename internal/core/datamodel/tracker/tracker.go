package tracker

import "github.com/frahmantamala/billable-dashboard/internal/core/flex"

// DailyRow is one agent's work for one day, from /tracker/view_daily.
type DailyRow struct {
	TrackerID             flex.Int    `json:"tracker_id"`
	UserID                flex.Int    `json:"user_id"`
	UserName              flex.String `json:"user_name"`
	TeamID                flex.Int    `json:"team_id"`
	TeamName              flex.String `json:"team_name"`
	WorkDate              flex.String `json:"work_date"`
	AssignedHours         flex.Float  `json:"assigned_hours"`
	TotalBillableHoursDay flex.Float  `json:"total_billable_hours_day"`
	QCScore               flex.Float  `json:"qc_score"`
	TrackersCountDay      flex.Float  `json:"trackers_count_day"`
	DailyRequiredHours    flex.Float  `json:"daily_required_hours"`
	ProjectID             flex.Int    `json:"project_id"`
	ProjectName           flex.String `json:"project_name"`
	TaskID                flex.Int    `json:"task_id"`
	TaskName              flex.String `json:"task_name"`
	TrackerFile           flex.String `json:"tracker_file"`
}

// MonthlyRow is one user's summary for one month, from
// /user_monthly_tracker/list.
type MonthlyRow struct {
	UserID             flex.Int    `json:"user_id"`
	UserName           flex.String `json:"user_name"`
	MonthYear          flex.String `json:"month_year"`
	TotalBillableHours flex.Float  `json:"total_billable_hours"`
	MonthlyTotalTarget flex.Float  `json:"monthly_total_target"`
	PendingTarget      flex.Float  `json:"pending_target"`
	AvgQCScore         flex.Float  `json:"avg_qc_score"`
	TeamID             flex.Int    `json:"team_id"`
	TeamName           flex.String `json:"team_name"`
}

// Entry is a raw tracker submission from /tracker/view.
type Entry struct {
	TrackerID     flex.Int    `json:"tracker_id"`
	UserID        flex.Int    `json:"user_id"`
	UserName      flex.String `json:"user_name"`
	ProjectID     flex.Int    `json:"project_id"`
	ProjectName   flex.String `json:"project_name"`
	TaskID        flex.Int    `json:"task_id"`
	TaskName      flex.String `json:"task_name"`
	WorkDate      flex.String `json:"work_date"`
	ProductionQty flex.Float  `json:"production"`
	BillableHours flex.Float  `json:"billable_hours"`
	TrackerFile   flex.String `json:"tracker_file"`
}
