package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWeek accepts a date (2006-01-02), normalised to its Monday, or an ISO
// week such as 2025-W03. An empty string means the week containing now.
func ParseWeek(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StartOfWeek(now.In(loc)), nil
	}
	if year, week, ok := splitISOWeek(s); ok {
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
		start := StartOfWeek(jan4).AddDate(0, 0, (week-1)*7)
		if y, w := start.ISOWeek(); y != year || w != week {
			return time.Time{}, fmt.Errorf("week %q does not exist", s)
		}
		return start, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week %q: want YYYY-MM-DD or YYYY-Www", s)
	}
	return StartOfWeek(d), nil
}

// WeekRange returns the half-open interval [start, start+7 days).
func WeekRange(start time.Time) (time.Time, time.Time) {
	start = StartOfWeek(start)
	return start, start.AddDate(0, 0, DaysPerWeek)
}

// WeekLabel formats the ISO week of start, e.g. 2025-W03.
func WeekLabel(start time.Time) string {
	y, w := start.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

func splitISOWeek(s string) (int, int, bool) {
	parts := strings.SplitN(strings.ToUpper(s), "-W", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return 0, 0, false
	}
	return year, week, true
}
