package project

import "github.com/frahmantamala/billable-dashboard/internal/core/flex"

type Record struct {
	ProjectID            flex.Int     `json:"project_id"`
	ProjectName          flex.String  `json:"project_name"`
	ProjectManagerID     flex.Int     `json:"project_manager_id"`
	AsstProjectManagerID flex.IDList  `json:"asst_project_manager_id"`
	ProjectQAID          flex.IDList  `json:"project_qa_id"`
	ProjectTeamID        flex.IDList  `json:"project_team_id"`
	Tasks                []TaskRecord `json:"tasks"`
}

type TaskRecord struct {
	TaskID     flex.Int    `json:"task_id"`
	TaskName   flex.String `json:"task_name"`
	TaskTarget flex.Float  `json:"task_target"`
}

// Option is a generic dropdown entry. The backend names the id and label
// columns after the dropdown type, so both are read from a raw map.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}
