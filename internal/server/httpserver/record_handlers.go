package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
)

func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return uuid.Nil, errs.Invalid("id", "must be a uuid")
	}
	return id, nil
}

func (s *Server) createClassification(c *gin.Context) {
	var draft model.ClassificationDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	actor := identityFrom(c)
	rec, err := s.classifications.Create(c.Request.Context(), actor, draft)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifySuccess, "Item classified",
		fmt.Sprintf("%s scored %d (%s)", rec.ItemName, rec.ReusabilityScore, rec.ReusabilityLabel))
	c.JSON(http.StatusCreated, rec)
}

type classifyRequest struct {
	Image            []byte `json:"image"` // base64 in transit
	AnnotateLocation bool   `json:"annotateLocation"`
}

func (s *Server) classifyImage(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	if len(req.Image) == 0 {
		s.writeErr(c, errs.Invalid("image", "required"))
		return
	}
	actor := identityFrom(c)
	rec, err := s.classifications.ClassifyAndCreate(c.Request.Context(), actor, req.Image, req.AnnotateLocation)
	if err != nil {
		s.hub.For(actor.ID).Notify(model.NotifyError, "Classification failed", "The classifier did not respond, try again")
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifySuccess, "Item classified",
		fmt.Sprintf("%s scored %d (%s)", rec.ItemName, rec.ReusabilityScore, rec.ReusabilityLabel))
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listClassifications(c *gin.Context) {
	recs, err := s.classifications.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) getClassification(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	rec, err := s.classifications.Get(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteClassification(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	actor := identityFrom(c)
	if err := s.classifications.Delete(c.Request.Context(), actor, id); err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifyInfo, "Record deleted", "Classification record removed")
	c.Status(http.StatusNoContent)
}

func (s *Server) stats(c *gin.Context) {
	sum, err := s.classifications.Stats(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) createReport(c *gin.Context) {
	var draft model.ReportDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	actor := identityFrom(c)
	rep, err := s.reports.Create(c.Request.Context(), actor, draft)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifySuccess, "Report created", rep.Title)
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) listReports(c *gin.Context) {
	reps, err := s.reports.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reps})
}

func (s *Server) getReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	rep, err := s.reports.Get(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) updateReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	var patch model.ReportPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	rep, err := s.reports.Update(c.Request.Context(), identityFrom(c), id, patch)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) deleteReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	actor := identityFrom(c)
	if err := s.reports.Delete(c.Request.Context(), actor, id); err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifyInfo, "Report deleted", "Report removed")
	c.Status(http.StatusNoContent)
}

type exportRequest struct {
	Format model.ExportFormat `json:"format"`
}

func contentType(format model.ExportFormat) string {
	switch format {
	case model.FormatCSV:
		return "text/csv"
	case model.FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

func (s *Server) exportReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	switch req.Format {
	case model.FormatPDF, model.FormatCSV, model.FormatSlides:
	default:
		s.writeErr(c, errs.Invalid("format", "unknown export format"))
		return
	}

	actor := identityFrom(c)
	out, err := s.reports.Export(c.Request.Context(), actor, id, req.Format)
	if err != nil {
		s.hub.For(actor.ID).Notify(model.NotifyError, "Export failed", "The exporter did not respond, try again")
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifySuccess, "Export ready", "Report exported as "+string(req.Format))
	c.Data(http.StatusOK, contentType(req.Format), out)
}

func (s *Server) listNotifications(c *gin.Context) {
	center := s.hub.For(identityFrom(c).ID)
	c.JSON(http.StatusOK, gin.H{
		"notifications": center.List(),
		"unread":        center.UnreadCount(),
	})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(identityFrom(c).ID).MarkRead(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) clearNotifications(c *gin.Context) {
	s.hub.For(identityFrom(c).ID).Clear()
	c.Status(http.StatusNoContent)
}
