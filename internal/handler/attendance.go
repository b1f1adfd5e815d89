package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/auth"
	"hospitalattendance/internal/capture"
	"hospitalattendance/internal/geo"
	"hospitalattendance/internal/queue"
	"hospitalattendance/internal/report"
)

type positionFields struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

// point returns nil unless both coordinates were sent.
func (p positionFields) point() *geo.GeoPoint {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	gp := &geo.GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}
	if p.Accuracy != nil {
		gp.AccuracyMeters = *p.Accuracy
	}
	return gp
}

type attendanceRequest struct {
	QRPayload string `json:"qr_payload"`
	Kind      string `json:"kind" binding:"required"`
	Method    string `json:"method"`
	// LocationError carries the device geolocation failure code, if any.
	LocationError string `json:"location_error"`
	positionFields
}

// RecordAttendance records one entry or exit for the signed-in student.
func (h *Handler) RecordAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	kind, err := attendance.ParseKind(req.Kind)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	method, err := attendance.ParseMethod(req.Method)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	out, err := h.Flow.Run(c.Request.Context(), claims.Subject, kind,
		capture.StaticPayload{Value: req.QRPayload, Method: method},
		capture.StaticPosition{Point: req.point(), Err: capture.ClientError(req.LocationError)})
	if err != nil {
		h.rejectAttendance(c, claims.Subject, err)
		return
	}

	if h.Queue != nil {
		msg := queue.Message{
			Type:      queue.TypeRecorded,
			RecordID:  out.Record.ID,
			StudentID: out.Record.StudentID,
			Valid:     out.Record.IsValid,
			At:        out.Record.CapturedAt,
		}
		// record is already persisted; publish failures are only logged
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.PublishTimeout)
		defer cancel()
		if err := h.Queue.Publish(pubCtx, msg); err != nil {
			h.logger.Warn("queue publish failed", zap.String("record", out.Record.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) rejectAttendance(c *gin.Context, studentID string, err error) {
	if h.Metrics != nil {
		h.Metrics.Rejected(err)
	}
	status, msg := attendanceStatus(err)
	if status == http.StatusInternalServerError {
		h.internalError(c, "record attendance", err)
		return
	}
	h.logger.Info("attendance rejected", zap.String("student", studentID), zap.Error(err))
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func attendanceStatus(err error) (int, string) {
	switch {
	case errors.Is(err, attendance.ErrStudentNotFound):
		return http.StatusNotFound, "Estudiante no encontrado"
	case errors.Is(err, attendance.ErrStudentInactive):
		return http.StatusForbidden, "Estudiante inactivo"
	case errors.Is(err, attendance.ErrDuplicateRecordID):
		return http.StatusConflict, "Identificador de registro duplicado, intente de nuevo"
	case errors.Is(err, attendance.ErrInvalidInput), errors.Is(err, capture.ErrNoPayload):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, capture.ErrPermissionDenied):
		return http.StatusUnprocessableEntity, "Permiso de ubicación denegado"
	case errors.Is(err, capture.ErrPositionUnavailable):
		return http.StatusUnprocessableEntity, "Ubicación no disponible"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "Tiempo de espera agotado al obtener la ubicación"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "Captura cancelada"
	}
	return http.StatusInternalServerError, ""
}

// MyAttendance lists the signed-in student's records with a summary.
func (h *Handler) MyAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	records, err := h.Records.ListByStudent(c.Request.Context(), claims.Subject)
	if err != nil {
		h.internalError(c, "list records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"summary": report.SummarizeStudent(records),
	})
}

// CheckGeofence tells the client whether a position is inside without recording.
func (h *Handler) CheckGeofence(c *gin.Context) {
	var req positionFields
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p := req.point()
	if p == nil || !p.Usable() {
		badRequest(c, "latitude and longitude required")
		return
	}
	res := h.Verifier.Verify(p)
	c.JSON(http.StatusOK, gin.H{
		"inside":          res.Inside,
		"distance_meters": res.DistanceMeters,
		"radius_meters":   h.Verifier.Config().RadiusMeters,
	})
}
