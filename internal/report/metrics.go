package report

import (
	"math"
	"slices"
	"time"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/student"
)

// DayNames labels report columns, Monday first.
var DayNames = [DaysPerWeek]string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// DayPresence is how many students attended on one weekday.
type DayPresence struct {
	Day     string `json:"day"`
	Present int    `json:"present"`
	Percent int    `json:"percent"`
}

// WeekMetrics aggregates a weekly report.
type WeekMetrics struct {
	TotalStudents          int                      `json:"total_students"`
	StudentsWithAttendance int                      `json:"students_with_attendance"`
	AttendancePercent      int                      `json:"attendance_percent"`
	TotalHours             float64                  `json:"total_hours"`
	AverageHours           float64                  `json:"average_hours"`
	PerDay                 [DaysPerWeek]DayPresence `json:"per_day"`
	BestAttendance         *StudentWeekSummary      `json:"best_attendance,omitempty"`
	MostHours              *StudentWeekSummary      `json:"most_hours,omitempty"`
}

// Metrics computes week-level figures. Ties keep the earlier row.
func Metrics(rows []StudentWeekSummary) WeekMetrics {
	m := WeekMetrics{TotalStudents: len(rows)}
	for i := range m.PerDay {
		m.PerDay[i].Day = DayNames[i]
	}

	var hours float64
	for i := range rows {
		row := &rows[i]
		if row.DaysPresent() > 0 {
			m.StudentsWithAttendance++
		}
		hours += row.TotalHours
		for d, day := range row.Days {
			if day.Status != StatusAbsent {
				m.PerDay[d].Present++
			}
		}
		if m.BestAttendance == nil || row.DaysPresent() > m.BestAttendance.DaysPresent() {
			m.BestAttendance = row
		}
		if m.MostHours == nil || row.TotalHours > m.MostHours.TotalHours {
			m.MostHours = row
		}
	}

	m.TotalHours = round1(hours)
	if m.TotalStudents > 0 {
		m.AverageHours = round1(hours / float64(m.TotalStudents))
		m.AttendancePercent = percent(m.StudentsWithAttendance, m.TotalStudents)
		for i := range m.PerDay {
			m.PerDay[i].Percent = percent(m.PerDay[i].Present, m.TotalStudents)
		}
	}
	return m
}

// Stats are the admin dashboard counters.
type Stats struct {
	TotalStudents    int `json:"total_students"`
	ActiveStudents   int `json:"active_students"`
	TotalAttendances int `json:"total_attendances"`
	EntriesToday     int `json:"entries_today"`
	InsideNow        int `json:"inside_now"`
}

// ComputeStats counts roster and log figures. "Today" is now's calendar day in
// now's location; a student is inside when their latest valid record today is
// an entry.
func ComputeStats(now time.Time, students []student.Student, records []attendance.Record) Stats {
	s := Stats{TotalStudents: len(students), TotalAttendances: len(records)}
	for _, st := range students {
		if st.Active {
			s.ActiveStudents++
		}
	}

	y, mo, d := now.Date()
	dayStart := time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	latest := make(map[string]attendance.Record)
	for _, rec := range records {
		at := rec.CapturedAt.In(now.Location())
		if !rec.IsValid || at.Before(dayStart) || !at.Before(dayEnd) {
			continue
		}
		if rec.Kind == attendance.Entry {
			s.EntriesToday++
		}
		if prev, ok := latest[rec.StudentID]; !ok || !rec.CapturedAt.Before(prev.CapturedAt) {
			latest[rec.StudentID] = rec
		}
	}
	for _, rec := range latest {
		if rec.Kind == attendance.Entry {
			s.InsideNow++
		}
	}
	return s
}

// StudentSummary is a student's own history overview.
type StudentSummary struct {
	Total        int                `json:"total"`
	ValidEntries int                `json:"valid_entries"`
	ValidExits   int                `json:"valid_exits"`
	Invalid      int                `json:"invalid"`
	Last         *attendance.Record `json:"last,omitempty"`
	// LastStayMinutes is the most recent valid entry to exit stay.
	LastStayMinutes int `json:"last_stay_minutes"`
}

// SummarizeStudent counts one student's records.
func SummarizeStudent(records []attendance.Record) StudentSummary {
	s := StudentSummary{Total: len(records)}
	for i := range records {
		rec := records[i]
		switch {
		case !rec.IsValid:
			s.Invalid++
		case rec.Kind == attendance.Entry:
			s.ValidEntries++
		case rec.Kind == attendance.Exit:
			s.ValidExits++
		}
		if s.Last == nil || !rec.CapturedAt.Before(s.Last.CapturedAt) {
			s.Last = &rec
		}
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b attendance.Record) int {
		return a.CapturedAt.Compare(b.CapturedAt)
	})
	var entry *attendance.Record
	for i := range sorted {
		rec := sorted[i]
		if !rec.IsValid {
			continue
		}
		switch rec.Kind {
		case attendance.Entry:
			entry = &rec
		case attendance.Exit:
			if entry != nil {
				s.LastStayMinutes = StayMinutes(*entry, rec)
				entry = nil
			}
		}
	}
	return s
}

// StayMinutes is the whole minutes between an entry and a later exit; zero
// when exit does not follow entry.
func StayMinutes(entry, exit attendance.Record) int {
	d := exit.CapturedAt.Sub(entry.CapturedAt)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

func percent(part, whole int) int {
	return int(math.Round(float64(part) * 100 / float64(whole)))
}
