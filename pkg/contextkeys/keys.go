// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the console must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/ozxin/nx-admin/pkg/contextkeys"
//	ctx = contextkeys.WithRequestID(ctx, id)
//	id := contextkeys.GetRequestID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.Client before every outgoing call
	// Used by: Logger, X-Request-ID header
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the signed-in username, logged as "username"
	// Set by: cli.App when a command starts with a loaded identity
	// Used by: Logger
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: cli.App when a command starts
	// Used by: packages that log with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// SilentNotifyKey marks every call made with this context as silent
	// Set by: session.Store for best-effort calls (server-side logout)
	// Used by: httputil.Client error notification
	// Type: bool
	SilentNotifyKey Key = "silent_notify"

	// SkipExpiryKey keeps a 401 from expiring the session
	// Set by: session.Store for the server-side logout call
	// Used by: httputil.Client expiry handling
	// Type: bool
	SkipExpiryKey Key = "skip_expiry"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithSilentNotify suppresses error notifications for calls made with ctx
func WithSilentNotify(ctx context.Context) context.Context {
	return context.WithValue(ctx, SilentNotifyKey, true)
}

// WithSkipExpiry disables the session expiry handler for calls made with ctx
func WithSkipExpiry(ctx context.Context) context.Context {
	return context.WithValue(ctx, SkipExpiryKey, true)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// IsSilentNotify reports whether notifications are suppressed for ctx
func IsSilentNotify(ctx context.Context) bool {
	silent, _ := ctx.Value(SilentNotifyKey).(bool)
	return silent
}

// IsSkipExpiry reports whether a 401 on ctx must leave the session alone
func IsSkipExpiry(ctx context.Context) bool {
	skip, _ := ctx.Value(SkipExpiryKey).(bool)
	return skip
}
