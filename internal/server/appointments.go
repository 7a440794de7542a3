package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appointmentdomain "github.com/stateline/govcomm/internal/appointment/domain"
	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
)

type assignAppointmentRequest struct {
	UserID         string `json:"user_id"`
	PositionID     string `json:"position_id"`
	AppointedBy    string `json:"appointed_by"`
	OrderReference string `json:"order_reference"`
}

func (s *Server) AssignAppointment(c *gin.Context) {
	var req assignAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := parseOptionalSnowflakeID(req.UserID)
	if err != nil || userID == nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user id"))
		return
	}
	positionID, err := parseOptionalSnowflakeID(req.PositionID)
	if err != nil || positionID == nil {
		AbortWithError(c, newValidationError("position_id", "invalid_position_id", "invalid position id"))
		return
	}
	appointedBy, err := parseOptionalSnowflakeID(req.AppointedBy)
	if err != nil {
		AbortWithError(c, newValidationError("appointed_by", "invalid_appointed_by", "invalid appointed-by id"))
		return
	}

	var orderReference *string
	if ref := strings.TrimSpace(req.OrderReference); ref != "" {
		orderReference = &ref
	}

	appointment, err := s.appointmentSvc.Assign(c.Request.Context(), appointmentdomain.AssignRequest{
		UserID:         *userID,
		PositionID:     *positionID,
		AppointedBy:    appointedBy,
		OrderReference: orderReference,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "appointment.assigned", auditdomain.TargetAppointment, appointment.ID, map[string]any{
		"user_id":     appointment.UserID.String(),
		"position_id": appointment.PositionID.String(),
		"unit_id":     appointment.OrganizationUnitID.String(),
	})
	c.JSON(http.StatusOK, gin.H{"data": appointment})
}

type dismissAppointmentRequest struct {
	Reason      string `json:"reason"`
	Date        string `json:"date"`
	DismissedBy string `json:"dismissed_by"`
}

func (s *Server) DismissAppointment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// The dismissal body is optional; a bare PUT dismisses without a
	// recorded reason.
	var req dismissAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	dismissedBy, err := parseOptionalSnowflakeID(req.DismissedBy)
	if err != nil {
		AbortWithError(c, newValidationError("dismissed_by", "invalid_dismissed_by", "invalid dismissed-by id"))
		return
	}
	date, err := parseOptionalTime(req.Date, false)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid dismissal date"))
		return
	}

	appointment, err := s.appointmentSvc.DismissByAppointment(c.Request.Context(), id, appointmentdomain.DismissRequest{
		Reason:      strings.TrimSpace(req.Reason),
		Date:        date,
		DismissedBy: dismissedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "appointment.dismissed", auditdomain.TargetAppointment, appointment.ID, map[string]any{
		"user_id": appointment.UserID.String(),
		"reason":  strings.TrimSpace(req.Reason),
	})
	c.JSON(http.StatusOK, gin.H{"data": appointment})
}
