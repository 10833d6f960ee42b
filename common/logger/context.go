package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to the context and added to every log record
// emitted with that context by TraceHandler.
type LogFields struct {
	TargetKey  *string // Normalized analysis target key
	TargetID   *int64  // Analysis target row id
	SnapshotID *int64  // Snapshot written by the current run
	MessageID  *string // Redis stream message ID
	Category   *string // Signal category (technical, keyword, ...)
	Provider   *string // Signal provider name
	Component  string  // e.g. "analyst.orchestrator"
}

// WithLogFields merges fields into the context. Newer non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.TargetKey != nil {
		result.TargetKey = next.TargetKey
	}
	if next.TargetID != nil {
		result.TargetID = next.TargetID
	}
	if next.SnapshotID != nil {
		result.SnapshotID = next.SnapshotID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Category != nil {
		result.Category = next.Category
	}
	if next.Provider != nil {
		result.Provider = next.Provider
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr returns a pointer to v, for inline LogFields literals.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate shortens s to maxLen bytes and appends "..." when it was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
