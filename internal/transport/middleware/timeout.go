package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds every request context. Handlers that return without writing
// after the deadline get a 504.
func Timeout(seconds int) gin.HandlerFunc {
	limit := time.Duration(seconds) * time.Second
	if limit <= 0 {
		limit = defaultRequestTimeout
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), limit)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			abort(c, http.StatusGatewayTimeout, "Request timed out")
		}
	}
}
