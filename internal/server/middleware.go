package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stateline/govcomm/internal/authorization"
	obscontext "github.com/stateline/govcomm/internal/observability/context"
)

const (
	// HeaderActor carries the caller identity resolved by the edge
	// gateway: "system" or "user:<id>".
	HeaderActor = "X-Actor"

	contextActorKey     = "actor"
	contextActorTypeKey = "actor_type"
	contextActorIDKey   = "actor_id"
)

// ActorContext extracts the caller identity and threads it through the
// request context for authorization and audit.
func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderActor))
		if actor == "" {
			c.Next()
			return
		}

		actorType := actor
		actorID := ""
		if rest, ok := strings.CutPrefix(actor, "user:"); ok {
			actorType = "user"
			actorID = strings.TrimSpace(rest)
		}

		c.Set(contextActorKey, actor)
		c.Set(contextActorTypeKey, actorType)
		c.Set(contextActorIDKey, actorID)

		ctx := obscontext.WithActor(c.Request.Context(), actorType, actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAction rejects the request unless the current actor may
// perform the action on the object.
func (s *Server) RequireAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentActor(c)
		if actor == "" {
			AbortWithError(c, authorization.ErrInvalidActor)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func currentActor(c *gin.Context) string {
	return c.GetString(contextActorKey)
}

func currentActorParts(c *gin.Context) (string, *string) {
	actorType := c.GetString(contextActorTypeKey)
	actorID := c.GetString(contextActorIDKey)
	if actorID == "" {
		return actorType, nil
	}
	return actorType, &actorID
}
