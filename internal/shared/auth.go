// File: internal/shared/auth.go
package shared

import (
	"context"
	"time"
)

// SessionMetadata is the identity metadata the provider attaches to a session.
type SessionMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Session is the provider-issued proof of authentication. The application never mutates it.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	Email        string
	Provider     string
	Metadata     SessionMetadata
}

// AuthEventType names a provider lifecycle event.
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

// EventOrigin tells subscribers whether an event echoes a call made by the subscriber itself.
type EventOrigin int

const (
	// OriginBackground marks events the caller did not request directly (OAuth completion, refresh, revocation).
	OriginBackground EventOrigin = iota
	// OriginInteractive marks the echo of an explicit sign-in, sign-up or sign-out call.
	OriginInteractive
)

// AuthEvent is delivered to OnAuthStateChange subscribers. Session is nil for EventSignedOut.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
	Origin  EventOrigin
}

// SignUpRequest carries the registration form.
type SignUpRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthClient is the remote authentication provider as seen by one browser session.
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignInWithIdP exchanges an identity-provider token (e.g. a Google id_token) for a session.
	// It emits EventSignedIn with OriginBackground.
	SignInWithIdP(ctx context.Context, providerID, idToken string) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns (nil, nil) when no session exists.
	GetSession(ctx context.Context) (*Session, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	// RefreshSession renews the session tokens. A revoked session is reported through EventSignedOut.
	RefreshSession(ctx context.Context) error
	// NotifyUserUpdated emits EventUserUpdated for the current session, if any.
	NotifyUserUpdated()
	// OnAuthStateChange registers fn and returns the function that removes it.
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}

// AuthClientFactory creates one provider client per browser session.
type AuthClientFactory interface {
	NewClient() AuthClient
}
