package types

import "context"

// Caller represents the authenticated application calling the token API.
type Caller struct {
	AppID string
	Name  string
}

// Context keys
type contextKey string

const (
	callerKey    contextKey = "caller"
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// WithCaller stores the authenticated Caller in the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// GetCaller retrieves the Caller from the context.
func GetCaller(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

// WithRequestID stores the request/trace correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context. Returns the empty
// string when none is set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLogger stores a Logger in the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger retrieves the Logger from the context, or nil when absent.
func GetLogger(ctx context.Context) Logger {
	logger, _ := ctx.Value(loggerKey).(Logger)
	return logger
}
