package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Identity *model.Identity `json:"identity"`
	Token    string          `json:"token,omitempty"`
}

func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	id, token, err := s.sessions.SignUp(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(id.ID).Notify(model.NotifySuccess, "Welcome", "Account created for "+id.Email)
	c.JSON(http.StatusCreated, sessionResponse{Identity: id, Token: token})
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	id, token, err := s.sessions.SignIn(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Identity: id, Token: token})
}

func (s *Server) checkExists(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		s.writeErr(c, errs.Invalid("email", "required"))
		return
	}
	exists, err := s.sessions.CheckExists(c.Request.Context(), email)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (s *Server) currentSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse{Identity: identityFrom(c)})
}

func (s *Server) updateProfile(c *gin.Context) {
	var patch model.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.writeErr(c, errs.Invalid("body", "malformed json"))
		return
	}
	id, token, err := s.sessions.UpdateProfile(c.Request.Context(), identityFrom(c), patch)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(id.ID).Notify(model.NotifySuccess, "Profile updated", "Your profile changes were saved")
	c.JSON(http.StatusOK, sessionResponse{Identity: id, Token: token})
}

type resetRequest struct {
	TargetID uuid.UUID `json:"targetId"`
}

func (s *Server) resetOwnedData(c *gin.Context) {
	var req resetRequest
	// Empty body means self-reset.
	_ = c.ShouldBindJSON(&req)

	actor := identityFrom(c)
	token, err := s.sessions.ResetOwnedData(c.Request.Context(), actor, req.TargetID)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	s.hub.For(actor.ID).Notify(model.NotifyWarning, "Data reset", "Classification history and reports were removed")
	c.JSON(http.StatusOK, gin.H{"token": token})
}
