package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hospitalattendance/internal/geo"
	"hospitalattendance/internal/qr"
	"hospitalattendance/internal/student"
)

// Observer is notified after a record has been persisted.
type Observer interface {
	Recorded(rec Record)
}

// Recorder validates attendance attempts and persists them.
type Recorder struct {
	students student.Repository
	store    Store
	verifier *geo.Verifier
	qr       *qr.Validator
	observer Observer
	logger   *zap.Logger

	now   func() time.Time
	newID func(at time.Time) string

	mu   sync.Mutex
	last time.Time
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source used for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func(at time.Time) string) Option {
	return func(r *Recorder) { r.newID = gen }
}

// WithObserver registers a post-persist hook.
func WithObserver(o Observer) Option {
	return func(r *Recorder) { r.observer = o }
}

// NewRecorder wires the recorder to its collaborators.
func NewRecorder(students student.Repository, store Store, verifier *geo.Verifier, validator *qr.Validator, opts ...Option) *Recorder {
	r := &Recorder{
		students: students,
		store:    store,
		verifier: verifier,
		qr:       validator,
		logger:   zap.L().Named("attendance.recorder"),
		now:      time.Now,
		newID:    NewID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewID builds an id from the capture time and a random suffix.
func NewID(at time.Time) string {
	return fmt.Sprintf("att_%d_%s", at.UnixMilli(), uuid.NewString()[:8])
}

// Record validates in and persists a new record. Invalid QR content or position
// never fail the call: they produce a record with IsValid=false. Unknown or
// inactive students and id collisions are returned as errors and nothing is
// stored; ErrDuplicateRecordID is safe to retry.
func (r *Recorder) Record(ctx context.Context, in Input) (Outcome, error) {
	if in.StudentID == "" || !in.Kind.Valid() || !in.Method.Valid() {
		return Outcome{}, fmt.Errorf("%w: student, kind and method required", ErrInvalidInput)
	}

	st, err := r.students.FindByID(ctx, in.StudentID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup student: %w", err)
	}
	if st == nil {
		return Outcome{}, ErrStudentNotFound
	}
	if !st.Active {
		return Outcome{}, ErrStudentInactive
	}

	qrOK := r.qr.IsValid(in.QRPayload)
	fence := r.verifier.Verify(in.Position)
	valid := qrOK && fence.Inside

	capturedAt := r.captureTime(in.CapturedAt)
	rec := Record{
		ID:             r.newID(capturedAt),
		StudentID:      st.Matricula,
		Kind:           in.Kind,
		CapturedAt:     capturedAt,
		DistanceMeters: fence.DistanceMeters,
		QRPayload:      in.QRPayload,
		Method:         in.Method,
		IsValid:        valid,
	}
	if in.Position != nil {
		rec.Position = *in.Position
	}
	if !valid {
		rec.InvalidReason = invalidReason(qrOK, fence.Inside)
	}

	existing, err := r.store.FindByID(ctx, rec.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("check record id: %w", err)
	}
	if existing != nil {
		return Outcome{}, ErrDuplicateRecordID
	}
	if err := r.store.Append(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("append record: %w", err)
	}

	r.logger.Info("attendance recorded",
		zap.String("id", rec.ID),
		zap.String("student", rec.StudentID),
		zap.String("kind", string(rec.Kind)),
		zap.Bool("valid", rec.IsValid),
		zap.Float64("distance_m", rec.DistanceMeters))
	if r.observer != nil {
		r.observer.Recorded(rec)
	}

	return Outcome{Success: true, Record: rec, Valid: rec.IsValid, Message: outcomeMessage(rec)}, nil
}

// captureTime keeps process-assigned timestamps non-decreasing. Caller-supplied
// times are kept as given.
func (r *Recorder) captureTime(given time.Time) time.Time {
	if !given.IsZero() {
		return given.UTC().Truncate(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now().UTC().Truncate(time.Millisecond)
	if !r.last.IsZero() && t.Before(r.last) {
		t = r.last
	}
	r.last = t
	return t
}
