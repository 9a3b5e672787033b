// File: internal/user/adapter.go
package user

import (
	"desirius_backend/internal/shared"
)

// DBToShared converts a GORM user.User model to the canonical shared.Profile.
func DBToShared(dbUser *User) *shared.Profile {
	if dbUser == nil {
		return nil
	}
	p := &shared.Profile{
		ID:              dbUser.ID,
		Name:            dbUser.Name,
		Email:           dbUser.Email,
		Handle:          dbUser.Handle,
		TotalPoints:     dbUser.TotalPoints,
		TotalTokensUsed: dbUser.TotalTokensUsed,
		CreatedAt:       dbUser.CreatedAt,
		LastLogin:       dbUser.LastLogin,
		AuthProvider:    dbUser.AuthProvider,
	}
	if dbUser.Phone != nil {
		p.Phone = *dbUser.Phone
	}
	if dbUser.AvatarURL != nil {
		p.AvatarURL = *dbUser.AvatarURL
	}
	return p
}

// SharedToDB builds the row for a profile. Empty phone and avatar are stored as NULL.
func SharedToDB(p *shared.Profile) *User {
	if p == nil {
		return nil
	}
	u := &User{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Handle:          p.Handle,
		TotalPoints:     p.TotalPoints,
		TotalTokensUsed: p.TotalTokensUsed,
		AuthProvider:    p.AuthProvider,
		CreatedAt:       p.CreatedAt,
		LastLogin:       p.LastLogin,
	}
	if p.Phone != "" {
		phone := p.Phone
		u.Phone = &phone
	}
	if p.AvatarURL != "" {
		avatar := p.AvatarURL
		u.AvatarURL = &avatar
	}
	if u.AuthProvider == "" {
		u.AuthProvider = "email"
	}
	return u
}

// ApplyUpdate copies the edited fields of req onto dbUser.
func ApplyUpdate(req UpdateProfileRequest, dbUser *User) {
	if req.Name != nil {
		dbUser.Name = *req.Name
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			dbUser.Phone = nil
		} else {
			phone := *req.Phone
			dbUser.Phone = &phone
		}
	}
	if req.AvatarURL != nil {
		if *req.AvatarURL == "" {
			dbUser.AvatarURL = nil
		} else {
			avatar := *req.AvatarURL
			dbUser.AvatarURL = &avatar
		}
	}
}

// ToRanking converts rows already ordered by points into leaderboard entries.
func ToRanking(users []User) []RankingEntry {
	entries := make([]RankingEntry, 0, len(users))
	for i := range users {
		u := &users[i]
		e := RankingEntry{
			Position:    i + 1,
			ID:          u.ID,
			Name:        u.Name,
			Handle:      u.Handle,
			TotalPoints: u.TotalPoints,
		}
		if u.AvatarURL != nil {
			e.AvatarURL = *u.AvatarURL
		}
		entries = append(entries, e)
	}
	return entries
}
