package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/student"
)

func TestMetrics(t *testing.T) {
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(0, 8, 0), true),
		rec("20251234", attendance.Exit, at(0, 16, 0), true),
		rec("20251234", attendance.Entry, at(1, 8, 0), true),
		rec("20255678", attendance.Entry, at(0, 7, 0), true),
		rec("20255678", attendance.Exit, at(0, 17, 0), true),
	}
	students := append(roster(), student.Student{Matricula: "20259876", Name: "María", Active: true})
	rows := BuildWeekly(monday, students, records)

	m := Metrics(rows)
	assert.Equal(t, 3, m.TotalStudents)
	assert.Equal(t, 2, m.StudentsWithAttendance)
	assert.Equal(t, 67, m.AttendancePercent)
	assert.Equal(t, 18.0, m.TotalHours)
	assert.Equal(t, 6.0, m.AverageHours)
	assert.Equal(t, "Lunes", m.PerDay[0].Day)
	assert.Equal(t, 2, m.PerDay[0].Present)
	assert.Equal(t, 67, m.PerDay[0].Percent)
	assert.Equal(t, 1, m.PerDay[1].Present)
	assert.Equal(t, 0, m.PerDay[6].Present)
	require.NotNil(t, m.BestAttendance)
	assert.Equal(t, "20251234", m.BestAttendance.Matricula)
	require.NotNil(t, m.MostHours)
	assert.Equal(t, "20255678", m.MostHours.Matricula)
}

func TestMetrics_Empty(t *testing.T) {
	m := Metrics(nil)
	assert.Equal(t, 0, m.TotalStudents)
	assert.Equal(t, 0, m.AttendancePercent)
	assert.Nil(t, m.BestAttendance)
	assert.Equal(t, "Domingo", m.PerDay[6].Day)
}

func TestComputeStats(t *testing.T) {
	now := at(2, 12, 0)
	students := append(roster(), student.Student{Matricula: "x", Active: false})
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(2, 8, 0), true),
		rec("20255678", attendance.Entry, at(2, 7, 0), true),
		rec("20255678", attendance.Exit, at(2, 11, 0), true),
		rec("20255678", attendance.Entry, at(2, 11, 30), false),
		rec("20251234", attendance.Entry, at(1, 8, 0), true),
	}

	s := ComputeStats(now, students, records)
	assert.Equal(t, 3, s.TotalStudents)
	assert.Equal(t, 2, s.ActiveStudents)
	assert.Equal(t, 5, s.TotalAttendances)
	assert.Equal(t, 2, s.EntriesToday)
	assert.Equal(t, 1, s.InsideNow)
}

func TestSummarizeStudent(t *testing.T) {
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(0, 8, 0), true),
		rec("20251234", attendance.Exit, at(0, 16, 0), true),
		rec("20251234", attendance.Entry, at(1, 8, 0), false),
	}
	s := SummarizeStudent(records)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ValidEntries)
	assert.Equal(t, 1, s.ValidExits)
	assert.Equal(t, 1, s.Invalid)
	require.NotNil(t, s.Last)
	assert.Equal(t, records[2].ID, s.Last.ID)
	assert.Equal(t, 480, s.LastStayMinutes)

	assert.Nil(t, SummarizeStudent(nil).Last)
	assert.Zero(t, SummarizeStudent(nil).LastStayMinutes)
}

func TestSummarizeStudent_LastStayUsesLatestPair(t *testing.T) {
	// newest first, the way the stores return history
	records := []attendance.Record{
		rec("20251234", attendance.Entry, at(2, 9, 0), true),
		rec("20251234", attendance.Exit, at(1, 12, 45), true),
		rec("20251234", attendance.Entry, at(1, 7, 30), true),
		rec("20251234", attendance.Exit, at(0, 16, 0), true),
		rec("20251234", attendance.Entry, at(0, 8, 0), true),
	}
	assert.Equal(t, 315, SummarizeStudent(records).LastStayMinutes)

	orphan := []attendance.Record{rec("20251234", attendance.Exit, at(0, 16, 0), true)}
	assert.Zero(t, SummarizeStudent(orphan).LastStayMinutes)
}

func TestStayMinutes(t *testing.T) {
	entry := attendance.Record{CapturedAt: at(0, 8, 0)}
	exit := attendance.Record{CapturedAt: at(0, 9, 30).Add(20 * time.Second)}
	assert.Equal(t, 90, StayMinutes(entry, exit))
	assert.Equal(t, 0, StayMinutes(exit, entry))
}
