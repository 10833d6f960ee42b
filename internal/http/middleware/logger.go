package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/common/logger"
)

// quietRoutes are scraped often; their access lines are debug only.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Logger writes one access line per request, keyed by route template so
// target keys in query strings do not blow up log cardinality.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "analyst.http"})
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if traceID := c.GetString(TraceIDKey); traceID != "" {
			attrs = append(attrs, "request_trace_id", traceID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status == 499:
			// client went away mid-analysis
		case status >= 400:
			level = slog.LevelWarn
		case quietRoutes[route]:
			level = slog.LevelDebug
		}
		slog.Log(c.Request.Context(), level, "http request", attrs...)
	}
}
