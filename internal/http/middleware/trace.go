package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"rankwise.app/analyst/common/id"
)

// TraceIDKey is the gin context key holding the request trace id.
const TraceIDKey = "trace_id"

// TraceID reads the caller's trace id from header, falling back to the active
// span's trace id and then to a fresh snowflake id. The id is echoed back in
// the same header and carried into async tasks.
func TraceID(header string) gin.HandlerFunc {
	if header == "" {
		header = "X-Trace-Id"
	}
	return func(c *gin.Context) {
		traceID := c.GetHeader(header)
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			} else {
				traceID = strconv.FormatInt(id.New(), 10)
			}
		}
		c.Set(TraceIDKey, traceID)
		c.Header(header, traceID)
		c.Next()
	}
}
