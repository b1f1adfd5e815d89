package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hospitalattendance/internal/auth"
	"hospitalattendance/internal/student"
)

type loginRequest struct {
	Matricula string `json:"matricula" binding:"required"`
}

// StudentLogin starts a student session from a matricula.
func (h *Handler) StudentLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	matricula := student.Normalize(req.Matricula)
	st, err := h.Students.FindByID(c.Request.Context(), matricula)
	if err != nil {
		h.internalError(c, "find student", err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Matrícula no encontrada"})
		return
	}
	if !st.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "Estudiante inactivo"})
		return
	}
	h.issue(c, st.Matricula, auth.RoleStudent, gin.H{"student": st})
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if h.Admin == nil || !h.Admin.Check(req.Username, req.Password) {
		h.logger.Warn("admin login rejected", zap.String("user", req.Username), zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	h.issue(c, req.Username, auth.RoleAdmin, nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken rotates a session. Students deactivated since login are refused.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	pair, claims, err := auth.Refresh(req.RefreshToken, h.Tokens.Issuer, h.Tokens.SigningKey, h.Tokens.AccessTTL, h.Tokens.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if claims.Role == auth.RoleStudent {
		st, err := h.Students.FindByID(c.Request.Context(), claims.Subject)
		if err != nil {
			h.internalError(c, "find student", err)
			return
		}
		if st == nil || !st.Active {
			c.JSON(http.StatusForbidden, gin.H{"error": "Estudiante inactivo"})
			return
		}
	}
	c.JSON(http.StatusOK, tokenBody(pair, claims.Role, nil))
}

func (h *Handler) issue(c *gin.Context, subject, role string, extra gin.H) {
	pair, err := auth.Issue(subject, role, h.Tokens.Issuer, h.Tokens.SigningKey, h.Tokens.AccessTTL, h.Tokens.RefreshTTL)
	if err != nil {
		h.internalError(c, "issue token", err)
		return
	}
	c.JSON(http.StatusOK, tokenBody(pair, role, extra))
}

func tokenBody(pair auth.TokenPair, role string, extra gin.H) gin.H {
	body := gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
		"role":          role,
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}
