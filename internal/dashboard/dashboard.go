package dashboard

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/flex"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
)

// Tab is one overview tab of the dashboard.
type Tab string

const (
	TabQA    Tab = "qa"
	TabAgent Tab = "agent"
	TabAdmin Tab = "admin"
)

// TabsFor lists the tabs a role may open.
func TabsFor(r role.Role) []Tab {
	switch {
	case r.IsPrivileged():
		return []Tab{TabAdmin, TabQA, TabAgent}
	case r == role.QAAgent:
		return []Tab{TabQA, TabAgent}
	case r == role.Agent:
		return []Tab{TabAgent}
	}
	return nil
}

const dateLayout = "2006-01-02"

// DateRange is passed to the backend unchanged once both ends parse.
type DateRange struct {
	From string `json:"start_date"`
	To   string `json:"end_date"`
}

func (d DateRange) Validate() error {
	errs := map[string]string{}
	var from, to time.Time
	var err error
	if d.From != "" {
		if from, err = time.Parse(dateLayout, d.From); err != nil {
			errs["start_date"] = "Start date must be formatted as YYYY-MM-DD"
		}
	}
	if d.To != "" {
		if to, err = time.Parse(dateLayout, d.To); err != nil {
			errs["end_date"] = "End date must be formatted as YYYY-MM-DD"
		}
	}
	if len(errs) == 0 && !from.IsZero() && !to.IsZero() && to.Before(from) {
		errs["end_date"] = "End date cannot be before start date"
	}
	if len(errs) > 0 {
		return internal.NewFieldMapError(errs)
	}
	return nil
}

type StatCard struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Value   flex.Float `json:"value"`
	Display string     `json:"display"`
}

type Bar struct {
	Label string     `json:"label"`
	Value flex.Float `json:"value"`
}

type Series struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Bars  []Bar  `json:"bars"`
}

type Overview struct {
	Tab    Tab        `json:"tab"`
	Cards  []StatCard `json:"cards"`
	Series []Series   `json:"series"`
	Error  string     `json:"error,omitempty"`
}

// Humanize turns a backend column into a label: total_billable_hours is
// "Total Billable Hours", qc_score is "QC Score".
func Humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		switch strings.ToLower(w) {
		case "qc", "qa", "id":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

var barLabelKeys = []string{"label", "name", "user_name", "project_name", "team_name", "date", "work_date", "month_year"}
var barValueKeys = []string{"value", "count", "total", "hours", "total_billable_hours", "billable_hours"}

// Build maps the counts returned for a tab onto cards and series. Numeric
// scalars become cards; arrays of objects with a label and a number become
// bar series. Anything else is ignored.
func Build(tab Tab, data json.RawMessage) Overview {
	out := Overview{Tab: tab, Cards: []StatCard{}, Series: []Series{}}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// A list response is a single series.
		if bars := barsFrom(data); len(bars) > 0 {
			out.Series = append(out.Series, Series{Key: string(tab), Label: Humanize(string(tab)), Bars: bars})
		}
		return out
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := fields[key]
		trimmed := strings.TrimSpace(string(raw))
		if strings.HasPrefix(trimmed, "[") {
			if bars := barsFrom(raw); len(bars) > 0 {
				out.Series = append(out.Series, Series{Key: key, Label: Humanize(key), Bars: bars})
			}
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			continue
		}
		var v flex.Float
		_ = json.Unmarshal(raw, &v)
		if !v.Valid && trimmed != "null" && trimmed != `""` {
			continue
		}
		out.Cards = append(out.Cards, StatCard{Key: key, Label: Humanize(key), Value: v, Display: v.Display(decimalsFor(v))})
	}
	return out
}

func decimalsFor(v flex.Float) int {
	if v.Valid && v.Value == float64(int64(v.Value)) {
		return 0
	}
	return 2
}

func barsFrom(raw json.RawMessage) []Bar {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	bars := make([]Bar, 0, len(items))
	for _, item := range items {
		label, ok := firstString(item, barLabelKeys)
		if !ok {
			continue
		}
		value := firstNumber(item, barValueKeys)
		bars = append(bars, Bar{Label: label, Value: value})
	}
	return bars
}

func firstString(m map[string]json.RawMessage, keys []string) (string, bool) {
	for _, k := range keys {
		if raw, ok := m[k]; ok {
			var s flex.String
			if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(string(s)) != "" {
				return strings.TrimSpace(string(s)), true
			}
		}
	}
	return "", false
}

// firstNumber prefers the known value keys and falls back to the only other
// numeric field of the item.
func firstNumber(m map[string]json.RawMessage, keys []string) flex.Float {
	for _, k := range keys {
		if raw, ok := m[k]; ok {
			var v flex.Float
			if json.Unmarshal(raw, &v) == nil && v.Valid {
				return v
			}
		}
	}

	var found flex.Float
	n := 0
	for k, raw := range m {
		if strings.HasSuffix(k, "_id") {
			continue
		}
		var v flex.Float
		if json.Unmarshal(raw, &v) == nil && v.Valid {
			found = v
			n++
		}
	}
	if n == 1 {
		return found
	}
	return flex.Float{}
}
