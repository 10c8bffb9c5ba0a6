package services

import "context"

type contextKey string

const (
	connIDKey    contextKey = "conn_id"
	filenameKey  contextKey = "filename"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithConnID annotates context with the client connection identifier.
func WithConnID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext extracts the connection identifier if present.
func ConnIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(connIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFilename annotates context with the recording filename.
func WithFilename(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, filenameKey, name)
}

// FilenameFromContext returns the recording filename if present.
func FilenameFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(filenameKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
