package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal"
)

// UnknownMonth is the group key for rows whose month_year is absent or
// malformed.
const UnknownMonth = "Unknown"

var monthYearPattern = regexp.MustCompile(`^([A-Z]+)(\d{4})$`)

var monthAbbrev = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// MonthYear is a parsed MMMYYYY key.
type MonthYear struct {
	Month time.Month
	Year  int
}

// ParseMonthYear reads keys like "JAN2026". Case and surrounding space are
// ignored and full month names ("JANUARY2026") are accepted.
func ParseMonthYear(raw string) (MonthYear, bool) {
	m := monthYearPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil || len(m[1]) < 3 {
		return MonthYear{}, false
	}

	month, ok := monthAbbrev[m[1][:3]]
	if !ok {
		return MonthYear{}, false
	}
	if len(m[1]) > 3 && !strings.HasPrefix(strings.ToUpper(month.String()), m[1]) {
		return MonthYear{}, false
	}

	year, _ := strconv.Atoi(m[2])
	return MonthYear{Month: month, Year: year}, true
}

// MonthKey normalizes raw into the canonical group key, or UnknownMonth.
func MonthKey(raw string) string {
	my, ok := ParseMonthYear(raw)
	if !ok {
		return UnknownMonth
	}
	return my.Key()
}

func (m MonthYear) Key() string {
	return fmt.Sprintf("%s%04d", strings.ToUpper(m.Month.String()[:3]), m.Year)
}

// Label is the human form, e.g. "January 2026".
func (m MonthYear) Label() string {
	return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
}

func (m MonthYear) Before(o MonthYear) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// MonthLabel renders a group key for display.
func MonthLabel(key string) string {
	if my, ok := ParseMonthYear(key); ok {
		return my.Label()
	}
	return UnknownMonth
}

// ParseMonthFilter reads the "YYYY-MM" month filter. Empty means no filter.
func ParseMonthFilter(raw string) (*MonthYear, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return nil, internal.NewValidationFieldError("month", "month must be formatted as YYYY-MM", internal.ErrCodeInvalidMonth)
	}
	return &MonthYear{Month: t.Month(), Year: t.Year()}, nil
}

// Contains reports whether a work date (YYYY-MM-DD, optionally with a time)
// falls in the month. Unparseable dates are kept.
func (m MonthYear) Contains(workDate string) bool {
	workDate = strings.TrimSpace(workDate)
	if len(workDate) < 7 {
		return true
	}
	t, err := time.Parse("2006-01", workDate[:7])
	if err != nil {
		return true
	}
	return t.Year() == m.Year && t.Month() == m.Month
}

// Filter returns the "YYYY-MM" form.
func (m MonthYear) Filter() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
