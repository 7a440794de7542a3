package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
	orgtreedomain "github.com/stateline/govcomm/internal/orgtree/domain"
)

type createUnitRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ParentID   string `json:"parent_id"`
	OrderIndex *int   `json:"order_index"`
}

func (s *Server) CreateUnit(c *gin.Context) {
	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	parentID, err := parseOptionalSnowflakeID(req.ParentID)
	if err != nil {
		AbortWithError(c, newValidationError("parent_id", "invalid_parent_id", "invalid parent id"))
		return
	}

	unit, err := s.orgtreeSvc.CreateUnit(c.Request.Context(), orgtreedomain.CreateUnitRequest{
		Name:       strings.TrimSpace(req.Name),
		Type:       strings.TrimSpace(req.Type),
		ParentID:   parentID,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "structure.unit_created", auditdomain.TargetOrganizationUnit, unit.ID, map[string]any{
		"name": unit.Name,
		"type": unit.Type,
		"path": unit.Path,
	})
	c.JSON(http.StatusOK, gin.H{"data": unit})
}

func (s *Server) GetUnit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	unit, err := s.orgtreeSvc.GetUnit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": unit})
}

type updateUnitRequest struct {
	Name       *string `json:"name"`
	OrderIndex *int    `json:"order_index"`
	Active     *bool   `json:"active"`
}

func (s *Server) UpdateUnit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unit, err := s.orgtreeSvc.UpdateUnit(c.Request.Context(), id, orgtreedomain.UpdateUnitRequest{
		Name:       req.Name,
		OrderIndex: req.OrderIndex,
		Active:     req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "structure.unit_updated", auditdomain.TargetOrganizationUnit, unit.ID, nil)
	c.JSON(http.StatusOK, gin.H{"data": unit})
}

func (s *Server) DeleteUnit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	force, ok := parseOptionalBool(c.Query("force"))
	if !ok {
		AbortWithError(c, newValidationError("force", "invalid_force", "invalid force"))
		return
	}

	if err := s.orgtreeSvc.DeleteUnit(c.Request.Context(), id, force); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "structure.unit_deleted", auditdomain.TargetOrganizationUnit, id, map[string]any{
		"force": force,
	})
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id.String(), "active": false}})
}

func (s *Server) GetStructureTree(c *gin.Context) {
	rootID, err := parseOptionalSnowflakeID(c.Query("root_id"))
	if err != nil {
		AbortWithError(c, newValidationError("root_id", "invalid_root_id", "invalid root id"))
		return
	}
	maxDepth, err := parseOptionalInt(c.Query("max_depth"))
	if err != nil {
		AbortWithError(c, newValidationError("max_depth", "invalid_max_depth", "invalid max depth"))
		return
	}

	depth := 0
	if maxDepth != nil {
		depth = *maxDepth
	}

	tree, err := s.orgtreeSvc.GetSubtree(c.Request.Context(), rootID, depth)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tree})
}

func (s *Server) audit(c *gin.Context, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	actorType, actorID := currentActorParts(c)
	target := targetID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), actorType, actorID, action, targetType, &target, metadata)
}
