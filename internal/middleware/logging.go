package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"treasury/internal/authz"
	"treasury/internal/logger"
	"treasury/internal/uuid"
)

const requestIDKey = "requestID"

// RequestLogging logs one line per request. An inbound X-Request-ID is kept
// so importer retries can be traced end to end. Server errors log at error
// level, client errors at warn.
func RequestLogging() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if !uuid.IsValid(requestID) {
			requestID = uuid.New()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if v, ok := c.Get(ActorKey); ok {
			if actor, ok := v.(authz.Actor); ok {
				fields = append(fields, "actor_id", actor.ProfileID, "actor_role", actor.Role)
			}
		}

		switch {
		case status >= 500:
			log.Errorw("request", fields...)
		case status >= 400:
			log.Warnw("request", fields...)
		default:
			log.Infow("request", fields...)
		}
	}
}
