package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"hospitalattendance/internal/attendance"
)

// Collectors groups the service's Prometheus instruments.
type Collectors struct {
	Records      *prometheus.CounterVec
	Distance     prometheus.Histogram
	HardFailures *prometheus.CounterVec
	AuditEntries prometheus.Counter
}

// New creates collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpjrm",
			Name:      "attendance_records_total",
			Help:      "Attendance records written, by kind and validity.",
		}, []string{"kind", "valid"}),
		Distance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hpjrm",
			Name:      "attendance_distance_meters",
			Help:      "Distance to the hospital reference point at capture time.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 10000},
		}),
		HardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpjrm",
			Name:      "attendance_hard_failures_total",
			Help:      "Attendance attempts rejected without a record.",
		}, []string{"reason"}),
		AuditEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hpjrm",
			Name:      "audit_entries_total",
			Help:      "Invalid attempts added to the audit log.",
		}),
	}
	reg.MustRegister(c.Records, c.Distance, c.HardFailures, c.AuditEntries)
	return c
}

// Recorded implements attendance.Observer.
func (c *Collectors) Recorded(rec attendance.Record) {
	c.Records.WithLabelValues(string(rec.Kind), strconv.FormatBool(rec.IsValid)).Inc()
	// zero distance on an invalid record means there was no usable position
	if rec.IsValid || rec.DistanceMeters > 0 {
		c.Distance.Observe(rec.DistanceMeters)
	}
}

// Rejected counts a hard failure returned by the recorder.
func (c *Collectors) Rejected(err error) {
	c.HardFailures.WithLabelValues(FailureReason(err)).Inc()
}

// FailureReason is the label used for a recorder error.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, attendance.ErrStudentNotFound):
		return "student_not_found"
	case errors.Is(err, attendance.ErrStudentInactive):
		return "student_inactive"
	case errors.Is(err, attendance.ErrDuplicateRecordID):
		return "duplicate_id"
	case errors.Is(err, attendance.ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}
