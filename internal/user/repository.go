// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"desirius_backend/internal/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for profile row operations.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	// Upsert inserts the row keyed by ID; an existing row is left as it is.
	Upsert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	AddPoints(ctx context.Context, id string, points int) error
	TopByPoints(ctx context.Context, limit int) ([]User, error)
	SearchByName(ctx context.Context, query string, limit int) ([]User, error)
	FindByIDs(ctx context.Context, ids []string) ([]User, error)
	EachBatch(ctx context.Context, size int, fn func([]User) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// FindByID retrieves a profile row by its provider user id.
func (r *gormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Profile not found with this ID.")
		}
		return nil, err
	}
	return &userModel, nil
}

func (r *gormRepository) Upsert(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user).Error
}

// Update saves the user-editable columns of an existing row.
func (r *gormRepository) Update(ctx context.Context, user *User) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"name":       user.Name,
		"phone":      user.Phone,
		"avatar_url": user.AvatarURL,
		"handle":     user.Handle,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Profile not found with this ID.")
	}
	return nil
}

func (r *gormRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", at).Error
}

// AddPoints increments total_points atomically.
func (r *gormRepository) AddPoints(ctx context.Context, id string, points int) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Profile not found with this ID.")
	}
	return nil
}

func (r *gormRepository) TopByPoints(ctx context.Context, limit int) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).
		Order("total_points DESC").Order("created_at ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// SearchByName is the database fallback for the profile directory when no search index is configured.
func (r *gormRepository) SearchByName(ctx context.Context, query string, limit int) ([]User, error) {
	var users []User
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(handle) LIKE ?", like, like).
		Order("total_points DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// FindByIDs returns the rows for ids, in no particular order.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *gormRepository) EachBatch(ctx context.Context, size int, fn func([]User) error) error {
	var batch []User
	return r.db.WithContext(ctx).FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
