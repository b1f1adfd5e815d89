// Package handler exposes the attendance engine over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/audit"
	"hospitalattendance/internal/auth"
	"hospitalattendance/internal/capture"
	"hospitalattendance/internal/geo"
	"hospitalattendance/internal/httpmiddleware"
	"hospitalattendance/internal/metrics"
	"hospitalattendance/internal/qr"
	"hospitalattendance/internal/queue"
	"hospitalattendance/internal/settings"
	"hospitalattendance/internal/student"
)

// TokenConfig signs and verifies session tokens.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the collaborators a Handler serves. Queue, Metrics, Audit and
// ScanLimiter are optional.
type Deps struct {
	Students    student.Repository
	Records     attendance.Store
	Flow        *capture.Flow
	Verifier    *geo.Verifier
	Validator   *qr.Validator
	Settings    *settings.Manager
	Audit       audit.Log
	Queue       queue.Queue
	Metrics     *metrics.Collectors
	Admin       *auth.AdminCredentials
	Tokens      TokenConfig
	Location    *time.Location
	Health      map[string]HealthCheck
	ScanLimiter *httpmiddleware.Limiter
	Now         func() time.Time

	// PublishTimeout bounds the recorded-event publish; defaults to 2s.
	PublishTimeout time.Duration
}

type Handler struct {
	Deps
	logger *zap.Logger
}

func New(d Deps, logger *zap.Logger) *Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Deps: d, logger: logger}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/v1/qr.png", h.QRCode)

	a := r.Group("/v1/auth")
	a.POST("/login", h.StudentLogin)
	a.POST("/admin", h.AdminLogin)
	a.POST("/refresh", h.RefreshToken)

	st := r.Group("/v1", auth.RequireRole(h.Tokens.SigningKey, h.Tokens.Issuer, auth.RoleStudent))
	scan := []gin.HandlerFunc{}
	if h.ScanLimiter != nil {
		scan = append(scan, h.ScanLimiter.GinMiddleware(subjectKey))
	}
	st.POST("/attendance", append(scan, h.RecordAttendance)...)
	st.GET("/attendance/me", h.MyAttendance)
	st.POST("/geofence/check", h.CheckGeofence)

	ad := r.Group("/v1/admin", auth.RequireRole(h.Tokens.SigningKey, h.Tokens.Issuer, auth.RoleAdmin))
	ad.GET("/stats", h.Stats)
	ad.GET("/students", h.ListStudents)
	ad.POST("/students", h.CreateStudent)
	ad.PUT("/students/:matricula", h.UpdateStudent)
	ad.GET("/records", h.ListRecords)
	ad.GET("/reports/weekly", h.WeeklyReport)
	ad.DELETE("/reports/weekly", h.ClearWeek)
	ad.GET("/settings", h.GetSettings)
	ad.PUT("/settings", h.UpdateSettings)
	ad.GET("/audit", h.ListAudit)
}

func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// QRCode renders the entrance poster. size is clamped to 128..1024 px.
func (h *Handler) QRCode(c *gin.Context) {
	size := 512
	if v := c.Query("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			size = min(max(n, 128), 1024)
		}
	}
	png, err := h.Validator.PNG(size)
	if err != nil {
		h.internalError(c, "render qr", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func subjectKey(c *gin.Context) string {
	if claims, ok := auth.FromContext(c); ok {
		return claims.Subject
	}
	return httpmiddleware.ClientIP(c)
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(op+" failed", zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
