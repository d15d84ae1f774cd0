package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/pkg/errors"
	"github.com/kestrelhq/kestrel/pkg/metrics"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// RequireAccess gates a route on the access resolver. A resolver failure is
// a 500, never a 403: the decision could not be computed, so the caller must
// not learn anything about their standing.
func RequireAccess(resolver *permissions.Resolver, module, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)

		allowed, err := resolver.Resolve(c.Request.Context(), userID, module, action)
		if err != nil {
			metrics.AccessChecks.WithLabelValues(module, "error").Inc()
			response.Error(c, errors.ErrAccessCheckFailed.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			metrics.AccessChecks.WithLabelValues(module, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.AccessChecks.WithLabelValues(module, "allowed").Inc()
		c.Next()
	}
}
