package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetUserHierarchy(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	overview, err := s.hierarchySvc.UserHierarchy(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overview})
}

func (s *Server) GetUserSupervisor(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	supervisor, err := s.hierarchySvc.DirectSupervisor(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supervisor})
}

func (s *Server) GetUserSubordinates(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	transitive, ok := parseOptionalBool(c.Query("transitive"))
	if !ok {
		AbortWithError(c, newValidationError("transitive", "invalid_transitive", "invalid transitive"))
		return
	}

	subordinates, err := s.hierarchySvc.Subordinates(c.Request.Context(), userID, transitive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subordinates})
}

func (s *Server) GetUserAppointments(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := s.identitySvc.Get(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := s.appointmentSvc.History(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}

func (s *Server) GetUserSubscriptions(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	subscriptions, err := s.channelSvc.ListUserSubscriptions(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subscriptions})
}
