// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a masked 500. A panic after
// the body was written is only logged.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			fields := []zap.Field{
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Stack("stack"),
			}
			if id, ok := GetIdentityID(c); ok {
				fields = append(fields, zap.Int64("identity_id", id))
			}
			logger.Error("panic recovered", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, http.StatusInternalServerError, "internal server error", xerrors.ErrInternal)
		}()
		c.Next()
	}
}
