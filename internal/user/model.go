// File: internal/user/model.go
package user

import (
	"time"
)

// User is the profile row stored in the users table. ID is the provider's user id.
type User struct {
	ID              string     `gorm:"type:varchar(128);primaryKey"`
	Name            string     `gorm:"type:varchar(150);not null;default:''"`
	Email           string     `gorm:"type:varchar(255);index"`
	Phone           *string    `gorm:"type:varchar(40)"`
	AvatarURL       *string    `gorm:"type:text"`
	Handle          string     `gorm:"type:varchar(200);index"`
	TotalPoints     int        `gorm:"not null;default:0;index"`
	TotalTokensUsed int        `gorm:"not null;default:0"`
	AuthProvider    string     `gorm:"type:varchar(50);not null;default:'email'"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time
	LastLogin       *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// --- DTOs (Data Transfer Objects) for API requests/responses ---

// UpdateProfileRequest holds the fields a user may edit on their own profile.
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty" binding:"omitempty,min=2,max=150"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,max=40"`
	AvatarURL *string `json:"avatar_url,omitempty" binding:"omitempty,url"`
}

// AwardPointsRequest names the activity that earned points.
type AwardPointsRequest struct {
	Activity string `json:"activity" binding:"required,oneof=consultation diagnosis post comment"`
}

// RankingEntry is one row of the points leaderboard.
type RankingEntry struct {
	Position    int    `json:"position"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Handle      string `json:"handle,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	TotalPoints int    `json:"total_points"`
}

// ActivityPoints maps each rewarded activity to the points it is worth.
var ActivityPoints = map[string]int{
	"consultation": 10,
	"diagnosis":    15,
	"post":         25,
	"comment":      5,
}
