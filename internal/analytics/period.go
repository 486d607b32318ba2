package analytics

import (
	"fmt"
	"time"
)

// Period selects the window of a mood trend report.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Insight periods.
const (
	InsightsWeekly  = "weekly"
	InsightsMonthly = "monthly"
)

const dateLayout = "2006-01-02"

// ParsePeriod validates a period name; empty selects the week.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeek, nil
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// ParseInsightPeriod validates an insight period name; empty selects weekly.
func ParseInsightPeriod(s string) (string, error) {
	switch s {
	case "":
		return InsightsWeekly, nil
	case InsightsWeekly, InsightsMonthly:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// window is a resolved reporting range; both bounds are inclusive.
type window struct {
	start time.Time
	end   time.Time
	days  int
}

// resolveWindow maps a period onto concrete UTC bounds. The week is rolling
// (six days back from now); month and year are calendar bounds.
func resolveWindow(period Period, now time.Time) window {
	now = now.UTC()
	switch period {
	case PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)
		return window{start: start, end: end, days: end.YearDay()}
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		return window{start: start, end: end, days: end.Day()}
	default:
		return window{start: now.AddDate(0, 0, -6), end: now, days: 7}
	}
}

// dayOf truncates t to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// eachDay calls fn for every calendar day from start's day to end's day inclusive.
func eachDay(start, end time.Time, fn func(day time.Time)) {
	last := dayOf(end)
	for d := dayOf(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
