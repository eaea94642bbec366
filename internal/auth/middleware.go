package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const actorKey = "auth.actor"

// Middleware validates the Authorization header and stores the resulting
// actor on the request context for downstream handlers.
func Middleware(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access denied, no token provided",
			})
			return
		}

		actor, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// ActorFromGin extracts the actor stored by Middleware.
func ActorFromGin(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}
