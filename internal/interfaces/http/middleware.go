package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

const actorKey = "actor"

// authMiddleware verifies the bearer token and stores the actor on the context
func authMiddleware(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHENTICATED", "bearer token required")
			return
		}

		actor, err := verifier.Verify(strings.TrimSpace(raw))
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// requireRole rejects actors whose role is not listed
func requireRole(roles ...workflow.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, "UNAUTHENTICATED", "bearer token required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abortWith(c, http.StatusForbidden, string(workflow.ReasonForbiddenRole),
			fmt.Sprintf("%s may not call this endpoint", actor.Role))
	}
}

// actorFrom returns the authenticated actor, if any
func actorFrom(c *gin.Context) (entity.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.Actor{}, false
	}
	actor, ok := v.(entity.Actor)
	return actor, ok
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Code:    code,
		Error:   message,
	})
}
