package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hospitalattendance/internal/geo"
)

var (
	ErrStudentNotFound   = errors.New("student not found")
	ErrStudentInactive   = errors.New("student inactive")
	ErrDuplicateRecordID = errors.New("duplicate attendance record id")
	ErrInvalidInput      = errors.New("invalid attendance input")
)

// Kind is the direction of an attendance event.
type Kind string

const (
	Entry Kind = "entry"
	Exit  Kind = "exit"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == Entry || k == Exit }

// ParseKind accepts entry/exit in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, s)
	}
	return k, nil
}

// Label is the user-facing Spanish name of the kind.
func (k Kind) Label() string {
	if k == Exit {
		return "salida"
	}
	return "entrada"
}

// Method is how the QR payload reached the system.
type Method string

const (
	QRScan      Method = "qr"
	ManualEntry Method = "manual"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool { return m == QRScan || m == ManualEntry }

// ParseMethod accepts qr/manual; empty means QRScan.
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return QRScan, nil
	}
	m := Method(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown method %q", ErrInvalidInput, s)
	}
	return m, nil
}

const (
	reasonQR       = "QR inválido"
	reasonLocation = "Ubicación inválida"
)

// Record is one attendance attempt. Records are built only by Recorder.Record
// and never modified afterwards.
type Record struct {
	ID             string       `json:"id"`
	StudentID      string       `json:"student_id"`
	Kind           Kind         `json:"kind"`
	CapturedAt     time.Time    `json:"captured_at"`
	Position       geo.GeoPoint `json:"position"`
	DistanceMeters float64      `json:"distance_meters"`
	QRPayload      string       `json:"qr_payload"`
	Method         Method       `json:"method"`
	IsValid        bool         `json:"is_valid"`
	InvalidReason  string       `json:"invalid_reason,omitempty"`
}

// CapturedAtMillis is the capture time as epoch milliseconds.
func (r Record) CapturedAtMillis() int64 { return r.CapturedAt.UnixMilli() }

// Input is what a capture flow hands to the recorder.
type Input struct {
	StudentID  string
	QRPayload  string
	Position   *geo.GeoPoint
	Kind       Kind
	Method     Method
	CapturedAt time.Time
}

// Outcome is returned for every recorded attempt, valid or not.
type Outcome struct {
	Success bool   `json:"success"`
	Record  Record `json:"record"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func invalidReason(qrOK, insideOK bool) string {
	var parts []string
	if !qrOK {
		parts = append(parts, reasonQR)
	}
	if !insideOK {
		parts = append(parts, reasonLocation)
	}
	return strings.Join(parts, " y ")
}

func outcomeMessage(rec Record) string {
	if rec.IsValid {
		return fmt.Sprintf("Registro de %s exitoso", rec.Kind.Label())
	}
	return fmt.Sprintf("Registro de %s inválido: %s", rec.Kind.Label(), rec.InvalidReason)
}
