package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/toktik-backend/internal/platform/ctxutil"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

// livenessPaths are logged at debug so liveness checks do not drown request logs.
var livenessPaths = map[string]bool{"/healthcheck": true}

// RequestLogger emits one line per request once the handler chain finishes.
// Server errors log at error, client errors at warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if last := c.Errors.Last(); last != nil {
			kv = append(kv, "error", last.Error())
		}

		switch {
		case status >= 500:
			log.Error("Request failed", kv...)
		case status >= 400:
			log.Warn("Request rejected", kv...)
		case livenessPaths[route]:
			log.Debug("Liveness check served", kv...)
		default:
			log.Info("Request served", kv...)
		}
	}
}
