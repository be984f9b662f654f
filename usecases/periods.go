package usecases

import (
	"fmt"
	"strings"
	"time"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

const lastMillisecond = 999 * int(time.Millisecond)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", validationErrorf("Invalid period. Use: day, week, or month")
}

// PeriodRange returns the closed window of the given period containing ref,
// evaluated in loc. Weeks run Sunday through Saturday.
func PeriodRange(p Period, ref time.Time, loc *time.Location) (time.Time, time.Time) {
	ref = ref.In(loc)
	y, m, d := ref.Date()
	switch p {
	case PeriodWeek:
		d -= int(ref.Weekday())
		return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d+6, 23, 59, 59, lastMillisecond, loc)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), time.Date(y, m+1, 0, 23, 59, 59, lastMillisecond, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d, 23, 59, 59, lastMillisecond, loc)
	}
}

// grouping cuts sessions into calendar buckets by their local start time.
type grouping struct {
	label func(t time.Time) string
	// span is nil when the bucket covers the observed start times only.
	span func(t time.Time) (time.Time, time.Time)
}

var dailyGrouping = grouping{
	label: func(t time.Time) string { return t.Format("2006-01-02") },
	span: func(t time.Time) (time.Time, time.Time) {
		return PeriodRange(PeriodDay, t, t.Location())
	},
}

var weeklyGrouping = grouping{
	label: func(t time.Time) string {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%d", year, week)
	},
}

var monthlyGrouping = grouping{
	label: func(t time.Time) string { return t.Format("2006-01") },
	span: func(t time.Time) (time.Time, time.Time) {
		return PeriodRange(PeriodMonth, t, t.Location())
	},
}
