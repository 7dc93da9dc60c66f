package project

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/project"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
)

// Dropdown types understood by /dropdown/get.
type Kind string

const (
	KindProjects     Kind = "projects"
	KindTasks        Kind = "tasks"
	KindTeams        Kind = "teams"
	KindDesignations Kind = "designations"
	KindUsers        Kind = "users"
)

func (k Kind) Valid() bool {
	switch k {
	case KindProjects, KindTasks, KindTeams, KindDesignations, KindUsers:
		return true
	}
	return false
}

// stem is the column prefix the backend uses for the kind, e.g. team_id.
func (k Kind) stem() string {
	return strings.TrimSuffix(string(k), "s")
}

type Task struct {
	ID     int64      `json:"task_id"`
	Name   string     `json:"task_name"`
	Target flex.Float `json:"task_target"`
}

type Project struct {
	ID               int64   `json:"project_id"`
	Name             string  `json:"project_name"`
	ProjectManagerID int64   `json:"project_manager_id,omitempty"`
	AsstManagerIDs   []int64 `json:"asst_project_manager_id"`
	QAIDs            []int64 `json:"project_qa_id"`
	TeamIDs          []int64 `json:"project_team_id"`
	Tasks            []Task  `json:"tasks"`
}

func FromRecord(r project.Record) *Project {
	p := &Project{
		ID:               r.ProjectID.Value,
		Name:             strings.TrimSpace(string(r.ProjectName)),
		ProjectManagerID: r.ProjectManagerID.Value,
		AsstManagerIDs:   ids(r.AsstProjectManagerID),
		QAIDs:            ids(r.ProjectQAID),
		TeamIDs:          ids(r.ProjectTeamID),
		Tasks:            make([]Task, 0, len(r.Tasks)),
	}
	for _, t := range r.Tasks {
		if !t.TaskID.Valid {
			continue
		}
		p.Tasks = append(p.Tasks, Task{ID: t.TaskID.Value, Name: strings.TrimSpace(string(t.TaskName)), Target: t.TaskTarget})
	}
	return p
}

func ids(l flex.IDList) []int64 {
	if l == nil {
		return []int64{}
	}
	return []int64(l)
}

var labelKeys = []string{"name", "label", "title", "user_name", "full_name"}

// OptionFrom reads a dropdown entry. The id is taken from <stem>_id or id,
// the label from <stem>_name, <stem> or a generic name column. Entries
// without a usable id are skipped.
func OptionFrom(kind Kind, raw json.RawMessage) (project.Option, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return project.Option{}, false
	}

	stem := kind.stem()
	var id flex.Int
	for _, key := range []string{stem + "_id", "id", "user_id"} {
		if v, ok := m[key]; ok {
			if err := json.Unmarshal(v, &id); err == nil && id.Valid {
				break
			}
		}
	}
	if !id.Valid {
		return project.Option{}, false
	}

	var label flex.String
	for _, key := range append([]string{stem + "_name", stem}, labelKeys...) {
		if v, ok := m[key]; ok {
			var s flex.String
			if err := json.Unmarshal(v, &s); err == nil && strings.TrimSpace(string(s)) != "" {
				label = s
				break
			}
		}
	}
	return project.Option{ID: id.Value, Label: strings.TrimSpace(string(label))}, true
}

// Options decodes and sorts a dropdown list by label.
func Options(kind Kind, data json.RawMessage) []project.Option {
	items := make([]project.Option, 0)
	for _, raw := range apiclient.NormalizeToArray(data) {
		if opt, ok := OptionFrom(kind, raw); ok {
			items = append(items, opt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Label) < strings.ToLower(items[j].Label)
	})
	return items
}
