package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/student"
)

var (
	havana = time.FixedZone("CST", -5*3600)
	monday = time.Date(2025, 1, 6, 0, 0, 0, 0, havana)
)

func at(day, hour, min int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

var seq int

func rec(studentID string, kind attendance.Kind, when time.Time, valid bool) attendance.Record {
	seq++
	return attendance.Record{
		ID:         fmt.Sprintf("att_%d", seq),
		StudentID:  studentID,
		Kind:       kind,
		CapturedAt: when.UTC(),
		IsValid:    valid,
	}
}

func roster() []student.Student {
	return []student.Student{
		{Matricula: "20251234", Name: "Ana", Active: true},
		{Matricula: "20255678", Name: "Carlos", Active: true},
	}
}

func TestBuildWeekly_EightHourDay(t *testing.T) {
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(0, 8, 0), true),
		rec("20251234", attendance.Exit, at(0, 16, 0), true),
	}

	rows := BuildWeekly(monday, roster(), records)
	require.Len(t, rows, 2)

	ana := rows[0]
	assert.Equal(t, "20251234", ana.Matricula)
	assert.Equal(t, "8h", ana.Days[0].Status)
	assert.Equal(t, 8.0, ana.Days[0].Hours)
	assert.Equal(t, "2025-01-06", ana.Days[0].Date)
	assert.Equal(t, 8.0, ana.TotalHours)
	for i := 1; i < DaysPerWeek; i++ {
		assert.Equal(t, StatusAbsent, ana.Days[i].Status)
	}

	carlos := rows[1]
	for _, d := range carlos.Days {
		assert.Equal(t, StatusAbsent, d.Status)
	}
	assert.Equal(t, 0.0, carlos.TotalHours)
}

func TestBuildWeekly_DayStatuses(t *testing.T) {
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(1, 8, 0), true),
		rec("20251234", attendance.Exit, at(2, 15, 0), true),
		rec("20251234", attendance.Entry, at(3, 7, 0), true),
		rec("20251234", attendance.Exit, at(3, 14, 30), true),
		// invalid records never count
		rec("20251234", attendance.Entry, at(4, 8, 0), false),
		rec("20251234", attendance.Exit, at(4, 12, 0), false),
	}

	row := BuildWeekly(monday, roster(), records)[0]
	assert.Equal(t, StatusAbsent, row.Days[0].Status)
	assert.Equal(t, StatusEntryOnly, row.Days[1].Status)
	assert.Equal(t, StatusExitOnly, row.Days[2].Status)
	assert.Equal(t, "7.5h", row.Days[3].Status)
	assert.Equal(t, StatusAbsent, row.Days[4].Status)
	assert.Equal(t, 7.5, row.TotalHours)
}

func TestBuildWeekly_ChronologicalPairing(t *testing.T) {
	// Stored out of order, with a duplicate entry and an exit before any entry.
	records := []attendance.Record{
		rec("20251234", attendance.Exit, at(0, 17, 0), true),
		rec("20251234", attendance.Entry, at(0, 13, 0), true),
		rec("20251234", attendance.Exit, at(0, 7, 0), true),
		rec("20251234", attendance.Exit, at(0, 12, 0), true),
		rec("20251234", attendance.Entry, at(0, 8, 0), true),
		rec("20251234", attendance.Entry, at(0, 9, 0), true),
	}
	// pairs: 08:00-12:00 and 09:00-17:00; 07:00 exit and 13:00 entry unused
	row := BuildWeekly(monday, roster(), records)[0]
	assert.Equal(t, "12h", row.Days[0].Status)
	assert.Equal(t, 12.0, row.TotalHours)
}

func TestBuildWeekly_NoPairPossible(t *testing.T) {
	records := []attendance.Record{
		rec("20251234", attendance.Exit, at(0, 7, 0), true),
		rec("20251234", attendance.Entry, at(0, 8, 0), true),
	}
	row := BuildWeekly(monday, roster(), records)[0]
	assert.Equal(t, "0h", row.Days[0].Status)
}

func TestBuildWeekly_TotalRoundsOnce(t *testing.T) {
	var records []attendance.Record
	for d := 0; d < 3; d++ {
		records = append(records,
			rec("20251234", attendance.Entry, at(d, 8, 0), true),
			rec("20251234", attendance.Exit, at(d, 8, 20), true))
	}
	row := BuildWeekly(monday, roster(), records)[0]
	assert.Equal(t, "0.3h", row.Days[0].Status)
	assert.Equal(t, 1.0, row.TotalHours)
}

func TestBuildWeekly_UsesWeekLocationForDays(t *testing.T) {
	// 23:30 local on Monday is Tuesday in UTC.
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(0, 20, 0), true),
		rec("20251234", attendance.Exit, at(0, 23, 30), true),
	}
	row := BuildWeekly(monday.Add(36*time.Hour), roster(), records)[0]
	assert.Equal(t, "3.5h", row.Days[0].Status)
	assert.Equal(t, StatusAbsent, row.Days[1].Status)
}

func TestBuildWeekly_SkipsInactiveAndKeepsOrder(t *testing.T) {
	students := []student.Student{
		{Matricula: "3", Active: true},
		{Matricula: "1", Active: false},
		{Matricula: "2", Active: true},
	}
	rows := BuildWeekly(monday, students, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0].Matricula)
	assert.Equal(t, "2", rows[1].Matricula)
}

func TestBuildWeekly_Idempotent(t *testing.T) {
	records := []attendance.Record{
		rec("20255678", attendance.Exit, at(2, 16, 0), true),
		rec("20255678", attendance.Entry, at(2, 8, 0), true),
		rec("20251234", attendance.Entry, at(4, 9, 0), true),
	}
	snapshot := append([]attendance.Record(nil), records...)

	first := BuildWeekly(monday, roster(), records)
	second := BuildWeekly(monday, roster(), records)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, records)
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2025, 1, 12, 22, 0, 0, 0, havana)
	assert.Equal(t, monday, StartOfWeek(sunday))
	assert.Equal(t, monday, StartOfWeek(monday))
	assert.Equal(t, monday, StartOfWeek(at(3, 10, 0)))
}

func TestParseWeek(t *testing.T) {
	got, err := ParseWeek("2025-01-08", time.Time{}, havana)
	require.NoError(t, err)
	assert.Equal(t, monday, got)

	got, err = ParseWeek("2025-W02", time.Time{}, havana)
	require.NoError(t, err)
	assert.Equal(t, monday, got)

	got, err = ParseWeek("", at(5, 12, 0), havana)
	require.NoError(t, err)
	assert.Equal(t, monday, got)

	_, err = ParseWeek("2025-W54", time.Time{}, havana)
	assert.Error(t, err)
	_, err = ParseWeek("2025-W53", time.Time{}, havana)
	assert.Error(t, err)
	_, err = ParseWeek("next week", time.Time{}, havana)
	assert.Error(t, err)

	assert.Equal(t, "2025-W02", WeekLabel(monday))
	from, to := WeekRange(at(2, 5, 0))
	assert.Equal(t, monday, from)
	assert.Equal(t, monday.AddDate(0, 0, 7), to)
}
