package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
	channeldomain "github.com/stateline/govcomm/internal/channel/domain"
)

func (s *Server) CreateUnitChannel(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.channelSvc.EnsureUnitChannel(c.Request.Context(), unitID); err != nil {
		AbortWithError(c, err)
		return
	}

	ch, err := s.channelSvc.GetChannelByUnit(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "channel.created", auditdomain.TargetChannel, ch.ID, map[string]any{
		"unit_id": unitID.String(),
		"slug":    ch.Slug,
	})
	c.JSON(http.StatusOK, gin.H{"data": ch})
}

func (s *Server) GetUnitChannel(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ch, err := s.channelSvc.GetChannelByUnit(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ch})
}

func (s *Server) GetUnitEmployees(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	includeDescendants, ok := parseOptionalBool(c.Query("include_descendants"))
	if !ok {
		AbortWithError(c, newValidationError("include_descendants", "invalid_include_descendants", "invalid include_descendants"))
		return
	}

	employees, err := s.hierarchySvc.SubtreeEmployees(c.Request.Context(), unitID, includeDescendants)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employees})
}

// SyncChannelMembership is the manual repair entry point for channels
// left inconsistent by partial cascade failures. Throttled per unit and
// serialized with a lock so concurrent repairs never interleave.
func (s *Server) SyncChannelMembership(c *gin.Context) {
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	unitID, ok := parseIDParam(c, "orgId")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	allow, err := s.resyncLimiter.AllowUnit(ctx, unitID.String())
	if err != nil {
		zap.L().Warn("resync rate limit check failed",
			zap.String("unit_id", unitID.String()),
			zap.Error(err),
		)
	} else if !allow.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(allow.RetryAfter.Seconds())+1))
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	token, locked, err := s.resyncLimiter.TryLockUnit(ctx, unitID.String())
	if err != nil {
		zap.L().Warn("resync lock acquisition failed",
			zap.String("unit_id", unitID.String()),
			zap.Error(err),
		)
	} else if !locked {
		AbortWithError(c, ErrConflict)
		return
	}
	if token != "" {
		defer func() {
			if err := s.resyncLimiter.UnlockUnit(ctx, unitID.String(), token); err != nil {
				zap.L().Warn("resync lock release failed",
					zap.String("unit_id", unitID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	ch, err := s.channelSvc.GetChannelByUnit(ctx, unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ch.ID != channelID {
		AbortWithError(c, channeldomain.ErrChannelNotFound)
		return
	}

	report, err := s.channelSvc.SyncOrganizationChannelMembership(ctx, unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "channel.membership_resynced", auditdomain.TargetChannel, report.ChannelID, map[string]any{
		"unit_id": unitID.String(),
		"added":   report.Added,
		"updated": report.Updated,
		"removed": report.Removed,
	})
	c.JSON(http.StatusOK, gin.H{"data": report})
}
