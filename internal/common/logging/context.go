package logging

import "context"

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	userIDKey       contextKey = "user_id"
	activeSnapIDKey contextKey = "active_snap_id"
)

// ContextWithRequestID returns a copy of ctx carrying the request ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithSnap returns a copy of ctx carrying the user and active snap IDs
func ContextWithSnap(ctx context.Context, userID, activeSnapID string) context.Context {
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	if activeSnapID != "" {
		ctx = context.WithValue(ctx, activeSnapIDKey, activeSnapID)
	}
	return ctx
}

// RequestIDFromContext returns the request ID stored in ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func contextFields(ctx context.Context) []Field {
	var fields []Field
	for _, key := range []contextKey{requestIDKey, userIDKey, activeSnapIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, Field{Key: string(key), Value: v})
		}
	}
	return fields
}
