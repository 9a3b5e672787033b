package session

import (
	"testing"
	"time"

	"desirius_backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackProfile_Name(t *testing.T) {
	tests := []struct {
		name string
		meta shared.SessionMetadata
		want string
	}{
		{"full name wins", shared.SessionMetadata{FullName: "Ana B", Name: "ana"}, "Ana B"},
		{"name when no full name", shared.SessionMetadata{Name: "Ana"}, "Ana"},
		{"blank full name skipped", shared.SessionMetadata{FullName: "  ", Name: "Ana"}, "Ana"},
		{"email local part", shared.SessionMetadata{}, "ana.b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &shared.Session{UserID: "u1", Email: "ana.b@example.com", Metadata: tt.meta}
			assert.Equal(t, tt.want, FallbackProfile(sess, time.Now()).Name)
		})
	}
}

func TestFallbackProfile_Fields(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	sess := &shared.Session{
		UserID:   "u1",
		Email:    "a@b.com",
		Provider: "google",
		Metadata: shared.SessionMetadata{FullName: "Ana B", AvatarURL: "https://cdn.example/ana.png"},
	}

	p := FallbackProfile(sess, now)

	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "a@b.com", p.Email)
	assert.Equal(t, "https://cdn.example/ana.png", p.AvatarURL)
	assert.Equal(t, "google", p.AuthProvider)
	assert.Zero(t, p.TotalPoints)
	assert.Zero(t, p.TotalTokensUsed)
	assert.Equal(t, now, p.CreatedAt)
	require.NotNil(t, p.LastLogin)
	assert.Equal(t, now, *p.LastLogin)
}

func TestFallbackProfile_DefaultProvider(t *testing.T) {
	p := FallbackProfile(&shared.Session{UserID: "u1", Email: "a@b.com"}, time.Now())
	assert.Equal(t, "email", p.AuthProvider)
}
