package report

import (
	"sort"
	"strings"
	"sync"

	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/tracker"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
	"github.com/frahmantamala/billable-dashboard/internal/export"
)

type UserInfo struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	TeamName string `json:"team_name,omitempty"`
}

type DailyRow struct {
	TrackerID     int64      `json:"tracker_id"`
	WorkDate      string     `json:"work_date"`
	ProjectName   string     `json:"project_name"`
	TaskName      string     `json:"task_name"`
	AssignedHours flex.Float `json:"assigned_hours"`
	WorkedHours   flex.Float `json:"total_billable_hours_day"`
	RequiredHours flex.Float `json:"daily_required_hours"`
	QCScore       flex.Float `json:"qc_score"`
	TrackerCount  flex.Float `json:"trackers_count_day"`
	TrackerFile   string     `json:"tracker_file,omitempty"`
}

type DailyFooter struct {
	AssignedHours flex.Float `json:"assigned_hours"`
	WorkedHours   flex.Float `json:"worked_hours"`
	RequiredHours flex.Float `json:"required_hours"`
	QCAverage     flex.Float `json:"qc_average"`
	TrackerCount  flex.Float `json:"tracker_count"`
}

// UserCard is one user's block on the daily board. Rows may be empty.
type UserCard struct {
	User   UserInfo    `json:"user"`
	Rows   []DailyRow  `json:"rows"`
	Footer DailyFooter `json:"footer"`
}

// DailyBoard remembers every user it has seen so their cards survive a
// filter change that leaves them without rows.
type DailyBoard struct {
	mu    sync.Mutex
	users map[int64]UserInfo
}

func NewDailyBoard() *DailyBoard {
	return &DailyBoard{users: make(map[int64]UserInfo)}
}

// Remember adds users ahead of any rows, e.g. from the user list.
func (b *DailyBoard) Remember(users ...UserInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range users {
		b.remember(u)
	}
}

func (b *DailyBoard) remember(u UserInfo) {
	known, ok := b.users[u.UserID]
	if !ok {
		b.users[u.UserID] = u
		return
	}
	if u.UserName != "" {
		known.UserName = u.UserName
	}
	if u.TeamName != "" {
		known.TeamName = u.TeamName
	}
	b.users[u.UserID] = known
}

// Build buckets rows by user_id and returns one card per remembered user,
// sorted by name. Rows without a user id are dropped.
func (b *DailyBoard) Build(rows []tracker.DailyRow) []UserCard {
	b.mu.Lock()
	defer b.mu.Unlock()

	buckets := make(map[int64][]DailyRow)
	for _, r := range rows {
		if !r.UserID.Valid {
			continue
		}
		id := r.UserID.Value
		b.remember(UserInfo{UserID: id, UserName: strings.TrimSpace(string(r.UserName)), TeamName: string(r.TeamName)})
		buckets[id] = append(buckets[id], dailyRowFrom(r))
	}

	cards := make([]UserCard, 0, len(b.users))
	for id, info := range b.users {
		bucket := buckets[id]
		if bucket == nil {
			bucket = []DailyRow{}
		}
		cards = append(cards, UserCard{User: info, Rows: bucket, Footer: DailyTotals(bucket)})
	}

	sort.Slice(cards, func(i, j int) bool {
		a, c := strings.ToLower(cards[i].User.UserName), strings.ToLower(cards[j].User.UserName)
		if a != c {
			return a < c
		}
		return cards[i].User.UserID < cards[j].User.UserID
	})
	return cards
}

// Known returns the number of remembered users.
func (b *DailyBoard) Known() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.users)
}

func dailyRowFrom(r tracker.DailyRow) DailyRow {
	return DailyRow{
		TrackerID:     r.TrackerID.Value,
		WorkDate:      strings.TrimSpace(string(r.WorkDate)),
		ProjectName:   string(r.ProjectName),
		TaskName:      string(r.TaskName),
		AssignedHours: r.AssignedHours,
		WorkedHours:   r.TotalBillableHoursDay,
		RequiredHours: r.DailyRequiredHours,
		QCScore:       r.QCScore,
		TrackerCount:  r.TrackersCountDay,
		TrackerFile:   string(r.TrackerFile),
	}
}

// DailyTotals computes the card footer. Absent values are skipped, so the
// QC average covers only rows with a numeric score and the tracker count
// only rows with a defined count.
func DailyTotals(rows []DailyRow) DailyFooter {
	var assigned, worked, required, qc, count accumulator
	for _, r := range rows {
		assigned.add(r.AssignedHours)
		worked.add(r.WorkedHours)
		required.add(r.RequiredHours)
		qc.add(r.QCScore)
		count.add(r.TrackerCount)
	}
	return DailyFooter{
		AssignedHours: assigned.Sum(),
		WorkedHours:   worked.Sum(),
		RequiredHours: required.Sum(),
		QCAverage:     qc.Avg(),
		TrackerCount:  count.Sum(),
	}
}

var dailyColumns = []export.Column{
	{Header: "Date", Width: 12},
	{Header: "Project", Width: 24},
	{Header: "Task", Width: 24},
	{Header: "Assigned Hours", Width: 15},
	{Header: "Worked Hours", Width: 14},
	{Header: "Required Hours", Width: 15},
	{Header: "QC Score", Width: 10},
	{Header: "Trackers", Width: 10},
}

// Display renders the row as shown on screen.
func (r DailyRow) Display() []string {
	return []string{
		displayText(r.WorkDate),
		displayText(r.ProjectName),
		displayText(r.TaskName),
		r.AssignedHours.Display(HoursDecimals),
		r.WorkedHours.Display(HoursDecimals),
		r.RequiredHours.Display(HoursDecimals),
		r.QCScore.Display(ScoreDecimals),
		r.TrackerCount.Display(CountDecimals),
	}
}

func (f DailyFooter) Display() []string {
	return []string{
		export.TotalLabel, "", "",
		f.AssignedHours.Display(HoursDecimals),
		f.WorkedHours.Display(HoursDecimals),
		f.RequiredHours.Display(HoursDecimals),
		f.QCAverage.Display(ScoreDecimals),
		f.TrackerCount.Display(CountDecimals),
	}
}

// Table is the card as the export sees it.
func (c UserCard) Table() export.Table {
	rows := make([][]string, len(c.Rows))
	for i, r := range c.Rows {
		rows[i] = r.Display()
	}
	return export.Table{
		Sheet:   c.User.UserName,
		Columns: dailyColumns,
		Rows:    rows,
		Total:   c.Footer.Display(),
	}
}

func displayText(s string) string {
	if strings.TrimSpace(s) == "" {
		return flex.Placeholder
	}
	return s
}
