package middleware

import (
	"net/http"
	"strings"

	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/pkg/auth"
	"github.com/gin-gonic/gin"
)

const requesterKey = "requester"

// TokenParser verifies a bearer token and returns its claims.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Auth requires a valid "Authorization: Bearer <token>" header and stores
// the caller in the gin context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			abort(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		claims, err := parser.Parse(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Token is not valid")
			return
		}

		role := entity.Role(claims.Role)
		if !role.Valid() {
			role = entity.RoleUser
		}
		c.Set(requesterKey, entity.Requester{ID: claims.UserID, Role: role})
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, ok := GetRequester(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		if !requester.IsAdmin() {
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func GetRequester(c *gin.Context) (entity.Requester, bool) {
	value, ok := c.Get(requesterKey)
	if !ok {
		return entity.Requester{}, false
	}
	requester, ok := value.(entity.Requester)
	return requester, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
