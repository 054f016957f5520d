package middleware

import (
	"net/http"
	"strings"

	"tourbook/models"
	"tourbook/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	CtxActorID   = "actorID"
	CtxActorRole = "actorRole"
)

// ActorMiddleware resolves the caller's identity from a Bearer token when one
// is present. Requests without a token proceed as anonymous customers, since
// guest bookings are allowed.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.Set(CtxActorID, "")
			c.Set(CtxActorRole, string(models.RoleCustomer))
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		id, role, err := utils.ExtractActorFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(CtxActorID, id)
		c.Set(CtxActorRole, role)
		c.Next()
	}
}

// RequireRole gates staff and admin endpoints on the role claim.
func RequireRole(roles ...models.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.ActorRole(c.GetString(CtxActorRole))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role for this operation"})
	}
}

// Actor returns the id and role the middleware resolved for this request.
func Actor(c *gin.Context) (string, models.ActorRole) {
	return c.GetString(CtxActorID), models.ActorRole(c.GetString(CtxActorRole))
}
