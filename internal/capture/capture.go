// Package capture acquires a QR payload and a device position and hands them
// to the attendance recorder. Acquisition is bounded by a timeout and can be
// cancelled; no record is written unless recording completes.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/geo"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("location unavailable")
	ErrNoPayload           = errors.New("no qr payload captured")
)

// PositionOptions mirror the device geolocation request.
type PositionOptions struct {
	Timeout      time.Duration
	HighAccuracy bool
	MaximumAge   time.Duration
}

// DefaultPositionOptions asks for a fresh high-accuracy fix.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{Timeout: 15 * time.Second, HighAccuracy: true, MaximumAge: 5 * time.Minute}
}

// PositionProvider supplies the device position. A nil point with a nil error
// means the device answered without usable coordinates. Implementations must
// return when ctx is done.
type PositionProvider interface {
	Position(ctx context.Context, opts PositionOptions) (*geo.GeoPoint, error)
}

// PayloadProvider supplies a scanned or typed payload.
type PayloadProvider interface {
	Payload(ctx context.Context) (string, attendance.Method, error)
}

// Recorder is the part of attendance.Recorder the flow needs.
type Recorder interface {
	Record(ctx context.Context, in attendance.Input) (attendance.Outcome, error)
}

// Flow runs one scan: payload, position, record.
type Flow struct {
	recorder   Recorder
	opts       PositionOptions
	maxRetries int
	logger     *zap.Logger
}

// NewFlow creates a flow with opts; a zero timeout uses the default.
func NewFlow(recorder Recorder, opts PositionOptions) *Flow {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPositionOptions().Timeout
	}
	return &Flow{recorder: recorder, opts: opts, maxRetries: 3, logger: zap.L().Named("capture")}
}

// Run captures and records one attendance attempt for studentID. Acquisition
// errors (timeout, denied permission, cancellation) abort without a record; a
// fix without usable coordinates is recorded as an invalid attempt.
func (f *Flow) Run(ctx context.Context, studentID string, kind attendance.Kind, payloads PayloadProvider, positions PositionProvider) (attendance.Outcome, error) {
	payload, method, err := payloads.Payload(ctx)
	if err != nil {
		return attendance.Outcome{}, fmt.Errorf("capture payload: %w", err)
	}

	posCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	position, err := positions.Position(posCtx, f.opts)
	cancel()
	if err != nil {
		f.logger.Warn("position acquisition failed",
			zap.String("student", studentID), zap.Error(err))
		return attendance.Outcome{}, fmt.Errorf("capture position: %w", err)
	}

	in := attendance.Input{
		StudentID: studentID,
		QRPayload: payload,
		Position:  position,
		Kind:      kind,
		Method:    method,
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attendance.Outcome{}, err
		}
		out, err := f.recorder.Record(ctx, in)
		if errors.Is(err, attendance.ErrDuplicateRecordID) && attempt < f.maxRetries {
			f.logger.Debug("record id collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		return out, err
	}
}

// Static providers serve values already received from a client request.

// StaticPayload returns a fixed payload.
type StaticPayload struct {
	Value  string
	Method attendance.Method
}

func (s StaticPayload) Payload(ctx context.Context) (string, attendance.Method, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if s.Value == "" {
		return "", "", ErrNoPayload
	}
	return s.Value, s.Method, nil
}

// StaticPosition returns a fixed position as reported by the client. Err
// carries a client-reported acquisition failure.
type StaticPosition struct {
	Point *geo.GeoPoint
	Err   error
}

func (s StaticPosition) Position(ctx context.Context, _ PositionOptions) (*geo.GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Point, nil
}

// ClientError maps a geolocation error code reported by the PWA to an error.
// Unknown or empty codes return nil.
func ClientError(code string) error {
	switch code {
	case "permission_denied":
		return ErrPermissionDenied
	case "position_unavailable":
		return ErrPositionUnavailable
	case "timeout":
		return context.DeadlineExceeded
	}
	return nil
}
