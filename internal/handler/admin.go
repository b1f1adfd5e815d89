package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/geo"
	"hospitalattendance/internal/report"
	"hospitalattendance/internal/student"
)

func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	students, err := h.Students.List(ctx)
	if err != nil {
		h.internalError(c, "list students", err)
		return
	}
	records, err := h.Records.ListAll(ctx)
	if err != nil {
		h.internalError(c, "list records", err)
		return
	}
	c.JSON(http.StatusOK, report.ComputeStats(h.Now().In(h.Location), students, records))
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.Students.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list students", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type studentRequest struct {
	Matricula string `json:"matricula"`
	Name      string `json:"name"`
	Career    string `json:"career"`
	Group     string `json:"group"`
	Active    *bool  `json:"active"`
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st := student.Student{
		Matricula: student.Normalize(req.Matricula),
		Name:      req.Name,
		Career:    req.Career,
		Group:     req.Group,
		Active:    req.Active == nil || *req.Active,
	}
	if st.Matricula == "" || st.Name == "" {
		badRequest(c, "matricula and name required")
		return
	}
	err := h.Students.Create(c.Request.Context(), st)
	if errors.Is(err, student.ErrExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "create student", err)
		return
	}
	h.logger.Info("student created", zap.String("matricula", st.Matricula))
	c.JSON(http.StatusCreated, st)
}

// UpdateStudent applies the fields present in the body.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	st, err := h.Students.FindByID(ctx, student.Normalize(c.Param("matricula")))
	if err != nil {
		h.internalError(c, "find student", err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": student.ErrNotFound.Error()})
		return
	}
	if req.Name != "" {
		st.Name = req.Name
	}
	if req.Career != "" {
		st.Career = req.Career
	}
	if req.Group != "" {
		st.Group = req.Group
	}
	if req.Active != nil {
		st.Active = *req.Active
	}
	err = h.Students.Update(ctx, *st)
	if errors.Is(err, student.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "update student", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListRecords lists every record, or one student's with ?student=.
func (h *Handler) ListRecords(c *gin.Context) {
	var (
		records []attendance.Record
		err     error
	)
	if id := c.Query("student"); id != "" {
		records, err = h.Records.ListByStudent(c.Request.Context(), student.Normalize(id))
	} else {
		records, err = h.Records.ListAll(c.Request.Context())
	}
	if err != nil {
		h.internalError(c, "list records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// WeeklyReport builds the per-student week table and its metrics.
func (h *Handler) WeeklyReport(c *gin.Context) {
	start, err := report.ParseWeek(c.Query("week"), h.Now(), h.Location)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	students, err := h.Students.List(ctx)
	if err != nil {
		h.internalError(c, "list students", err)
		return
	}
	records, err := h.Records.ListAll(ctx)
	if err != nil {
		h.internalError(c, "list records", err)
		return
	}
	rows := report.BuildWeekly(start, students, records)
	_, end := report.WeekRange(start)
	c.JSON(http.StatusOK, gin.H{
		"week":     report.WeekLabel(start),
		"start":    start,
		"end":      end,
		"days":     report.DayNames,
		"students": rows,
		"metrics":  report.Metrics(rows),
	})
}

// ClearWeek deletes every record captured in the selected week.
func (h *Handler) ClearWeek(c *gin.Context) {
	start, err := report.ParseWeek(c.Query("week"), h.Now(), h.Location)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	from, to := report.WeekRange(start)
	n, err := h.Records.DeleteBetween(c.Request.Context(), from, to)
	if err != nil {
		h.internalError(c, "clear week", err)
		return
	}
	h.logger.Warn("week data cleared", zap.String("week", report.WeekLabel(start)), zap.Int64("deleted", n))
	c.JSON(http.StatusOK, gin.H{"week": report.WeekLabel(start), "deleted": n})
}

func (h *Handler) GetSettings(c *gin.Context) {
	cfg, err := h.Settings.Geofence(c.Request.Context())
	if err != nil {
		h.internalError(c, "load settings", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var cfg geo.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.Settings.Save(c.Request.Context(), cfg); err != nil {
		h.internalError(c, "save settings", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ListAudit returns recent invalid attempts, newest first.
func (h *Handler) ListAudit(c *gin.Context) {
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []any{}})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "list audit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
