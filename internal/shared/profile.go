// File: internal/shared/profile.go
package shared

import (
	"context"
	"time"
)

// Profile is the canonical application-level user record, keyed by the session's user id.
type Profile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	Handle          string     `json:"handle,omitempty"`
	TotalPoints     int        `json:"total_points"`
	TotalTokensUsed int        `json:"total_tokens_used"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	AuthProvider    string     `json:"auth_provider"`
}

// ProfileStore is the remote profile table consumed by the session controller.
// GetProfile returns common.ErrNotFound when no row exists for id.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	// UpsertProfile inserts p or, when a row with p.ID exists, leaves its counters untouched.
	UpsertProfile(ctx context.Context, p *Profile) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
