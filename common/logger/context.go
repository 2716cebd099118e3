package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment so that webhook context (delivery_id,
// repository, event_kind) is included in every log statement without threading
// attrs by hand.
type LogFields struct {
	DeliveryID *int64  // webhook_logs row ID for the delivery being processed
	Repository *string // repository full name ("owner/name")
	EventKind  *string // classified webhook kind (e.g. "pull_request")
	UserID     *string // authenticated user, when known
	Component  string  // component name (e.g. "flowsync.webhook.pipeline")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, updated LogFields) LogFields {
	result := existing

	if updated.DeliveryID != nil {
		result.DeliveryID = updated.DeliveryID
	}
	if updated.Repository != nil {
		result.Repository = updated.Repository
	}
	if updated.EventKind != nil {
		result.EventKind = updated.EventKind
	}
	if updated.UserID != nil {
		result.UserID = updated.UserID
	}
	if updated.Component != "" {
		result.Component = updated.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{DeliveryID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like payloads or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
