package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"

	"rankwise.app/analyst/core/config"
)

// Setup installs the process-wide slog default for cfg.
//
//   - development: text output at debug level
//   - production: JSON output, or the otelslog bridge when an OTLP endpoint is set
func Setup(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: level(cfg)}

	var handler slog.Handler
	switch {
	case cfg.IsProduction() && cfg.OTel.Enabled():
		handler = otelslog.NewHandler(
			cfg.OTel.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
	case cfg.IsProduction():
		handler = NewTraceHandler(slog.NewJSONHandler(os.Stdout, opts))
	default:
		handler = NewTraceHandler(slog.NewTextHandler(os.Stdout, opts))
	}

	slog.SetDefault(slog.New(handler))
}

func level(cfg config.Config) slog.Level {
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	}
	if cfg.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// TraceHandler decorates records with the active span ids and the
// LogFields carried by the context.
type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	r.AddAttrs(fieldAttrs(GetLogFields(ctx))...)

	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

func fieldAttrs(f LogFields) []slog.Attr {
	attrs := make([]slog.Attr, 0, 7)
	if f.TargetKey != nil {
		attrs = append(attrs, slog.String("target_key", *f.TargetKey))
	}
	if f.TargetID != nil {
		attrs = append(attrs, slog.Int64("target_id", *f.TargetID))
	}
	if f.SnapshotID != nil {
		attrs = append(attrs, slog.Int64("snapshot_id", *f.SnapshotID))
	}
	if f.MessageID != nil {
		attrs = append(attrs, slog.String("message_id", *f.MessageID))
	}
	if f.Category != nil {
		attrs = append(attrs, slog.String("category", *f.Category))
	}
	if f.Provider != nil {
		attrs = append(attrs, slog.String("provider", *f.Provider))
	}
	if f.Component != "" {
		attrs = append(attrs, slog.String("component", f.Component))
	}
	return attrs
}
