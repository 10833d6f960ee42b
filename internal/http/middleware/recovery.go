package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rankwise.app/analyst/internal/http/dto"
)

// Recovery turns a handler panic into a 500 with the API error body and marks
// the request span failed.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ctx := c.Request.Context()
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.RecordError(fmt.Errorf("panic: %v", rec))
				span.SetStatus(codes.Error, "panic")
			}

			slog.ErrorContext(ctx, "handler panicked",
				"panic", rec,
				"route", c.FullPath(),
				"request_trace_id", c.GetString(TraceIDKey),
				"stack", string(debug.Stack()),
			)

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error: "internal server error",
				Kind:  "internal",
			})
		}()
		c.Next()
	}
}
