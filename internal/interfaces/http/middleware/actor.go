package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opsdash/purchasing/internal/infrastructure/logger"
)

const (
	// ActorHeader names the user on whose behalf a request runs
	ActorHeader = "X-Actor"
	// ActorKey is the gin context key of the actor
	ActorKey = "actor"

	maxActorLength = 200
)

// Actor resolves the acting user from X-Actor, falling back to defaultActor,
// and stores it on both the gin and the request context. Authentication is
// the gateway's job; this only records who the caller claims to be.
func Actor(defaultActor string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = defaultActor
		}
		if len(actor) > maxActorLength {
			actor = actor[:maxActorLength]
		}
		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// GetActor returns the actor set by Actor
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}
