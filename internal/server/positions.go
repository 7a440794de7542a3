package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
	positiondomain "github.com/stateline/govcomm/internal/position/domain"
)

type createPositionRequest struct {
	Title          string `json:"title"`
	UnitID         string `json:"organization_unit_id"`
	ReportsToID    string `json:"reports_to_id"`
	IsManagerial   bool   `json:"is_managerial"`
	CanManageSubs  bool   `json:"can_manage_subordinates"`
	CanAssignTasks bool   `json:"can_assign_tasks"`
	CanDiscipline  bool   `json:"can_issue_disciplinary_actions"`
	MaxHolders     int    `json:"max_holders"`
}

func (s *Server) CreatePosition(c *gin.Context) {
	var req createPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unitID, err := parseOptionalSnowflakeID(req.UnitID)
	if err != nil || unitID == nil {
		AbortWithError(c, newValidationError("organization_unit_id", "invalid_unit_id", "invalid organization unit id"))
		return
	}
	reportsTo, err := parseOptionalSnowflakeID(req.ReportsToID)
	if err != nil {
		AbortWithError(c, newValidationError("reports_to_id", "invalid_reports_to_id", "invalid reports-to id"))
		return
	}

	pos, err := s.positionSvc.CreatePosition(c.Request.Context(), positiondomain.CreatePositionRequest{
		Title:              strings.TrimSpace(req.Title),
		OrganizationUnitID: *unitID,
		ReportsToID:        reportsTo,
		IsManagerial:       req.IsManagerial,
		CanManageSubs:      req.CanManageSubs,
		CanAssignTasks:     req.CanAssignTasks,
		CanDiscipline:      req.CanDiscipline,
		MaxHolders:         req.MaxHolders,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "position.created", auditdomain.TargetPosition, pos.ID, map[string]any{
		"title":   pos.Title,
		"unit_id": pos.OrganizationUnitID.String(),
	})
	c.JSON(http.StatusOK, gin.H{"data": pos})
}

func (s *Server) GetPosition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pos, err := s.positionSvc.GetPosition(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pos})
}

type updatePositionRequest struct {
	Title          *string `json:"title"`
	ReportsToID    *string `json:"reports_to_id"`
	IsManagerial   *bool   `json:"is_managerial"`
	CanManageSubs  *bool   `json:"can_manage_subordinates"`
	CanAssignTasks *bool   `json:"can_assign_tasks"`
	CanDiscipline  *bool   `json:"can_issue_disciplinary_actions"`
	MaxHolders     *int    `json:"max_holders"`
	Active         *bool   `json:"active"`
}

func (s *Server) UpdatePosition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := positiondomain.UpdatePositionRequest{
		Title:          req.Title,
		IsManagerial:   req.IsManagerial,
		CanManageSubs:  req.CanManageSubs,
		CanAssignTasks: req.CanAssignTasks,
		CanDiscipline:  req.CanDiscipline,
		MaxHolders:     req.MaxHolders,
		Active:         req.Active,
	}
	if req.ReportsToID != nil {
		reportsTo, err := parseOptionalSnowflakeID(*req.ReportsToID)
		if err != nil {
			AbortWithError(c, newValidationError("reports_to_id", "invalid_reports_to_id", "invalid reports-to id"))
			return
		}
		update.ReportsToID = reportsTo
	}

	pos, err := s.positionSvc.UpdatePosition(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "position.updated", auditdomain.TargetPosition, pos.ID, nil)
	c.JSON(http.StatusOK, gin.H{"data": pos})
}

func (s *Server) ListUnitPositions(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	positions, err := s.positionSvc.ListByUnit(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": positions})
}
