// Package httpserver exposes the EcoSort dashboard JSON API.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/notify"
	"github.com/and161185/ecosort/internal/session"
	"github.com/and161185/ecosort/internal/store"
)

// Server wires services into HTTP handlers.
type Server struct {
	sessions        session.Manager
	classifications *store.ClassificationStore
	reports         *store.ReportStore
	hub             *notify.Hub
	log             *zap.Logger
}

// New constructs the server with injected services.
func New(
	sessions session.Manager,
	classifications *store.ClassificationStore,
	reports *store.ReportStore,
	hub *notify.Hub,
	log *zap.Logger,
) *Server {
	return &Server{
		sessions:        sessions,
		classifications: classifications,
		reports:         reports,
		hub:             hub,
		log:             log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log))

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", s.signUp)
	auth.POST("/signin", s.signIn)
	auth.GET("/exists", s.checkExists)

	authed := api.Group("", s.requireAuth())
	authed.GET("/auth/session", s.currentSession)
	authed.PUT("/auth/profile", s.updateProfile)
	authed.POST("/auth/reset", s.resetOwnedData)

	authed.POST("/classifications", s.createClassification)
	authed.POST("/classifications/classify", s.classifyImage)
	authed.GET("/classifications", s.listClassifications)
	authed.GET("/classifications/:id", s.getClassification)
	authed.DELETE("/classifications/:id", s.deleteClassification)
	authed.GET("/stats", s.stats)

	authed.POST("/reports", s.createReport)
	authed.GET("/reports", s.listReports)
	authed.GET("/reports/:id", s.getReport)
	authed.PUT("/reports/:id", s.updateReport)
	authed.DELETE("/reports/:id", s.deleteReport)
	authed.POST("/reports/:id/export", s.exportReport)

	authed.GET("/notifications", s.listNotifications)
	authed.POST("/notifications/:id/read", s.markNotificationRead)
	authed.DELETE("/notifications", s.clearNotifications)

	return r
}

// writeErr maps service errors onto HTTP statuses.
func (s *Server) writeErr(c *gin.Context, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason, "field": ve.Field})
	case errors.Is(err, errs.ErrClaimExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "claim expired"})
	case errors.Is(err, errs.ErrClaimMalformed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "claim malformed"})
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, errs.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, errs.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
	case errors.Is(err, errs.ErrCollaboratorTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collaborator unavailable, retry"})
	default:
		s.log.Error("internal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
