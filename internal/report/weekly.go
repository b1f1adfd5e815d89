// Package report derives weekly summaries and dashboard figures from the
// attendance log. Every function here is a pure function of its arguments.
package report

import (
	"math"
	"sort"
	"strconv"
	"time"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/student"
)

// Day statuses that are not an hours figure.
const (
	StatusAbsent    = "Absent"
	StatusEntryOnly = "EntryOnly"
	StatusExitOnly  = "ExitOnly"
)

// DaysPerWeek is the report width, Monday first.
const DaysPerWeek = 7

// DaySummary is one student's result for one calendar day.
type DaySummary struct {
	Date   string  `json:"date"`
	Status string  `json:"status"`
	Hours  float64 `json:"hours"`
}

// StudentWeekSummary is one row of the weekly report.
type StudentWeekSummary struct {
	Matricula  string                  `json:"matricula"`
	Name       string                  `json:"name"`
	Group      string                  `json:"group"`
	Days       [DaysPerWeek]DaySummary `json:"days"`
	TotalHours float64                 `json:"total_hours"`
}

// DaysPresent counts days that are not Absent.
func (s StudentWeekSummary) DaysPresent() int {
	n := 0
	for _, d := range s.Days {
		if d.Status != StatusAbsent {
			n++
		}
	}
	return n
}

// StartOfWeek returns Monday 00:00 of t's week in t's location.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// BuildWeekly summarises the week starting at weekStart for every active
// student, in the order students are given. Only valid records count. Within a
// day, entries and exits are paired chronologically: each unconsumed entry takes
// the first unconsumed exit after it; leftovers are ignored. Records sharing a
// timestamp pair in an unspecified order.
func BuildWeekly(weekStart time.Time, students []student.Student, records []attendance.Record) []StudentWeekSummary {
	start := StartOfWeek(weekStart)
	loc := start.Location()

	byStudent := make(map[string][]attendance.Record)
	for _, rec := range records {
		if rec.IsValid {
			byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
		}
	}

	out := make([]StudentWeekSummary, 0, len(students))
	for _, st := range students {
		if !st.Active {
			continue
		}
		row := StudentWeekSummary{Matricula: st.Matricula, Name: st.Name, Group: st.Group}
		var total time.Duration
		for i := 0; i < DaysPerWeek; i++ {
			dayStart := start.AddDate(0, 0, i)
			dayEnd := dayStart.AddDate(0, 0, 1)
			day, worked := summarizeDay(byStudent[st.Matricula], dayStart, dayEnd, loc)
			row.Days[i] = day
			total += worked
		}
		row.TotalHours = round1(total.Hours())
		out = append(out, row)
	}
	return out
}

func summarizeDay(records []attendance.Record, dayStart, dayEnd time.Time, loc *time.Location) (DaySummary, time.Duration) {
	day := DaySummary{Date: dayStart.Format("2006-01-02"), Status: StatusAbsent}

	var entries, exits []attendance.Record
	for _, rec := range records {
		at := rec.CapturedAt.In(loc)
		if at.Before(dayStart) || !at.Before(dayEnd) {
			continue
		}
		switch rec.Kind {
		case attendance.Entry:
			entries = append(entries, rec)
		case attendance.Exit:
			exits = append(exits, rec)
		}
	}

	switch {
	case len(entries) == 0 && len(exits) == 0:
		return day, 0
	case len(exits) == 0:
		day.Status = StatusEntryOnly
		return day, 0
	case len(entries) == 0:
		day.Status = StatusExitOnly
		return day, 0
	}

	worked := pairedDuration(entries, exits)
	day.Hours = round1(worked.Hours())
	day.Status = FormatHours(day.Hours)
	return day, worked
}

// pairedDuration sums entry→exit spans using a two-pointer sweep over the
// time-ordered lists. An exit that is not after the current entry is skipped.
func pairedDuration(entries, exits []attendance.Record) time.Duration {
	byTime := func(recs []attendance.Record) {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].CapturedAt.Before(recs[j].CapturedAt) })
	}
	byTime(entries)
	byTime(exits)

	var total time.Duration
	i, j := 0, 0
	for i < len(entries) && j < len(exits) {
		if exits[j].CapturedAt.After(entries[i].CapturedAt) {
			total += exits[j].CapturedAt.Sub(entries[i].CapturedAt)
			i++
		}
		j++
	}
	return total
}

// FormatHours renders a worked-hours day status such as "8h" or "7.5h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
