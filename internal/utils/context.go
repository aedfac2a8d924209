package utils

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id stored by WithRequestID, or nil, in the form the
// Logger methods expect.
func RequestID(ctx context.Context) *string {
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}
