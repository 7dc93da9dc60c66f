package report

import (
	"sort"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal/core/datamodel/tracker"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
	"github.com/frahmantamala/billable-dashboard/internal/export"
)

type MonthlyRow struct {
	UserID        int64      `json:"user_id"`
	UserName      string     `json:"user_name"`
	TeamName      string     `json:"team_name"`
	MonthKey      string     `json:"month_year"`
	BillableHours flex.Float `json:"total_billable_hours"`
	MonthlyGoal   flex.Float `json:"monthly_total_target"`
	PendingTarget flex.Float `json:"pending_target"`
	QCScore       flex.Float `json:"avg_qc_score"`
}

type MonthlyFooter struct {
	BillableHours flex.Float `json:"billable_hours"`
	MonthlyGoal   flex.Float `json:"monthly_goal"`
	PendingTarget flex.Float `json:"pending_target"`
	QCAverage     flex.Float `json:"qc_average"`
}

// MonthCard holds every user row of one month.
type MonthCard struct {
	Key    string        `json:"key"`
	Label  string        `json:"label"`
	Rows   []MonthlyRow  `json:"rows"`
	Footer MonthlyFooter `json:"footer"`
}

// GroupMonthly groups rows by normalized month key, oldest month first and
// UnknownMonth last. Rows inside a card keep the backend order.
func GroupMonthly(rows []tracker.MonthlyRow) []MonthCard {
	groups := make(map[string][]MonthlyRow)
	var keys []string
	for _, r := range rows {
		key := MonthKey(string(r.MonthYear))
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], monthlyRowFrom(r, key))
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, aok := ParseMonthYear(keys[i])
		b, bok := ParseMonthYear(keys[j])
		if aok != bok {
			return aok
		}
		return a.Before(b)
	})

	cards := make([]MonthCard, 0, len(keys))
	for _, key := range keys {
		cards = append(cards, MonthCard{
			Key:    key,
			Label:  MonthLabel(key),
			Rows:   groups[key],
			Footer: MonthlyTotals(groups[key]),
		})
	}
	return cards
}

func monthlyRowFrom(r tracker.MonthlyRow, key string) MonthlyRow {
	return MonthlyRow{
		UserID:        r.UserID.Value,
		UserName:      strings.TrimSpace(string(r.UserName)),
		TeamName:      string(r.TeamName),
		MonthKey:      key,
		BillableHours: r.TotalBillableHours,
		MonthlyGoal:   r.MonthlyTotalTarget,
		PendingTarget: r.PendingTarget,
		QCScore:       r.AvgQCScore,
	}
}

func MonthlyTotals(rows []MonthlyRow) MonthlyFooter {
	var billable, goal, pending, qc accumulator
	for _, r := range rows {
		billable.add(r.BillableHours)
		goal.add(r.MonthlyGoal)
		pending.add(r.PendingTarget)
		qc.add(r.QCScore)
	}
	return MonthlyFooter{
		BillableHours: billable.Sum(),
		MonthlyGoal:   goal.Sum(),
		PendingTarget: pending.Sum(),
		QCAverage:     qc.Avg(),
	}
}

var monthlyColumns = []export.Column{
	{Header: "User", Width: 24},
	{Header: "Team", Width: 18},
	{Header: "Billable Hours", Width: 15},
	{Header: "Monthly Goal", Width: 14},
	{Header: "Pending Target", Width: 15},
	{Header: "Avg QC Score", Width: 13},
}

func (r MonthlyRow) Display() []string {
	return []string{
		displayText(r.UserName),
		displayText(r.TeamName),
		r.BillableHours.Display(HoursDecimals),
		r.MonthlyGoal.Display(HoursDecimals),
		r.PendingTarget.Display(HoursDecimals),
		r.QCScore.Display(ScoreDecimals),
	}
}

func (f MonthlyFooter) Display() []string {
	return []string{
		export.TotalLabel, "",
		f.BillableHours.Display(HoursDecimals),
		f.MonthlyGoal.Display(HoursDecimals),
		f.PendingTarget.Display(HoursDecimals),
		f.QCAverage.Display(ScoreDecimals),
	}
}

func (c MonthCard) Table() export.Table {
	rows := make([][]string, len(c.Rows))
	for i, r := range c.Rows {
		rows[i] = r.Display()
	}
	return export.Table{
		Sheet:   c.Label,
		Columns: monthlyColumns,
		Rows:    rows,
		Total:   c.Footer.Display(),
	}
}
