// File: internal/session/fallback.go
package session

import (
	"strings"
	"time"

	"desirius_backend/internal/shared"
)

// FallbackProfile synthesizes a profile from session metadata for when the profile store
// cannot be reached. Counters are zero and timestamps are now.
func FallbackProfile(sess *shared.Session, now time.Time) *shared.Profile {
	lastLogin := now
	return &shared.Profile{
		ID:           sess.UserID,
		Name:         displayName(sess),
		Email:        sess.Email,
		Phone:        sess.Metadata.Phone,
		AvatarURL:    sess.Metadata.AvatarURL,
		CreatedAt:    now,
		LastLogin:    &lastLogin,
		AuthProvider: providerOrDefault(sess.Provider),
	}
}

// displayName prefers full_name, then name, then the e-mail local part.
func displayName(sess *shared.Session) string {
	if n := strings.TrimSpace(sess.Metadata.FullName); n != "" {
		return n
	}
	if n := strings.TrimSpace(sess.Metadata.Name); n != "" {
		return n
	}
	if at := strings.IndexByte(sess.Email, '@'); at > 0 {
		return sess.Email[:at]
	}
	return sess.Email
}

func providerOrDefault(p string) string {
	if p == "" {
		return "email"
	}
	return p
}
