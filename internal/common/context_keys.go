// File: internal/common/context_keys.go
package common

const (
	// LoggerKey is the gin context key holding a request-scoped *zap.Logger.
	LoggerKey = "logger"
	// RequestIDKey is the gin context key for the request ID.
	RequestIDKey = "requestID"
	// SessionIDKey is the gin context key for the browser session ID resolved from the session cookie.
	SessionIDKey = "sessionID"
	// ControllerKey is the gin context key for the browser's *session.Controller.
	ControllerKey = "sessionController"
	// ProfileKey is the gin context key for the authenticated *shared.Profile set by the route guard.
	ProfileKey = "profile"
)
