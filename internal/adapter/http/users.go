package http

import (
	"net/http"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/gin-gonic/gin"
)

func (s *Server) register(c *gin.Context) {
	var in hazard.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	user, created, err := s.deps.Hazards.Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	token, err := s.deps.Tokens.Issue(user.UserID)
	if err != nil {
		s.fail(c, domain.WrapError(domain.KindServerError, "Internal server error", err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"userId":    user.UserID,
		"token":     token,
		"createdAt": user.CreatedAt,
	})
}

func (s *Server) profile(c *gin.Context) {
	profile, err := s.deps.Hazards.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) updateProfile(c *gin.Context) {
	var patch hazard.ProfilePatch
	if err := bindJSON(c, &patch); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.deps.Hazards.UpdateProfile(c.Request.Context(), currentUser(c), patch); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}
