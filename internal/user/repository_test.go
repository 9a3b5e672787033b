package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"desirius_backend/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGORMRepository(db)
}

func seedUser(t *testing.T, repo Repository, id, name string, points int) *User {
	t.Helper()
	u := &User{ID: id, Name: name, Email: id + "@example.com", Handle: MakeHandle(name, id), TotalPoints: points, AuthProvider: "email"}
	require.NoError(t, repo.Upsert(context.Background(), u))
	return u
}

func TestRepository_FindByID_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepository_UpsertKeepsExistingRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "Ana", 40)

	err := repo.Upsert(ctx, &User{ID: "u1", Name: "Someone Else", Email: " OTHER@Example.com ", AuthProvider: "google"})

	require.NoError(t, err)
	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, 40, got.TotalPoints)
	assert.Equal(t, "email", got.AuthProvider)
}

func TestRepository_UpsertNormalizesEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &User{ID: "u1", Name: "Ana", Email: " Ana@Example.COM "}))

	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
}

func TestRepository_Update(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	u := seedUser(t, repo, "u1", "Ana", 0)
	phone := "11999990000"
	u.Name = "Ana Paula"
	u.Phone = &phone

	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Paula", got.Name)
	require.NotNil(t, got.Phone)
	assert.Equal(t, phone, *got.Phone)

	err = repo.Update(ctx, &User{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepository_AddPointsAndRanking(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "Ana", 10)
	seedUser(t, repo, "u2", "Bia", 30)
	seedUser(t, repo, "u3", "Cris", 20)

	require.NoError(t, repo.AddPoints(ctx, "u1", 25))
	assert.ErrorIs(t, repo.AddPoints(ctx, "missing", 5), common.ErrNotFound)

	top, err := repo.TopByPoints(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "u1", top[0].ID)
	assert.Equal(t, 35, top[0].TotalPoints)
	assert.Equal(t, "u2", top[1].ID)
}

func TestRepository_TouchLastLogin(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "Ana", 0)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.TouchLastLogin(ctx, "u1", at))

	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(at))
}

func TestRepository_SearchAndFindByIDs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "Ana Souza", 5)
	seedUser(t, repo, "u2", "Mariana", 50)
	seedUser(t, repo, "u3", "Bia", 1)

	found, err := repo.SearchByName(ctx, "ANA", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "u2", found[0].ID)

	byIDs, err := repo.FindByIDs(ctx, []string{"u3", "u1"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	none, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_EachBatch(t *testing.T) {
	repo := newTestRepository(t)
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		seedUser(t, repo, id, "Nome "+id, 0)
	}

	var sizes []int
	seen := 0
	err := repo.EachBatch(context.Background(), 2, func(batch []User) error {
		sizes = append(sizes, len(batch))
		seen += len(batch)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, seen)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}
