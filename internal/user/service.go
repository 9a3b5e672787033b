// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"desirius_backend/internal/common"
	"desirius_backend/internal/config"
	"desirius_backend/internal/shared"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
	defaultSearchLimit  = 20
	reindexBatchSize    = 200
	avatarsSubDir       = "avatars"
)

// Service defines the profile operations exposed to handlers and to the session controller.
type Service interface {
	shared.ProfileStore
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*shared.Profile, error)
	AwardActivity(ctx context.Context, id, activity string) (*shared.Profile, error)
	Ranking(ctx context.Context, limit int) ([]RankingEntry, error)
	Search(ctx context.Context, query string, limit int) ([]shared.Profile, error)
	UpdateAvatar(ctx context.Context, id string, file *multipart.FileHeader) (*shared.Profile, error)
	ReindexAll(ctx context.Context) (int, error)
}

// SearchIndex is the profile directory index. A nil SearchIndex makes Search fall back to the database.
type SearchIndex interface {
	IndexProfile(ctx context.Context, p *shared.Profile) error
	BulkIndex(ctx context.Context, profiles []*shared.Profile) error
	SearchProfileIDs(ctx context.Context, query string, limit int) ([]string, error)
}

// AvatarStorage stores uploaded avatar images and returns their path relative to the media root.
type AvatarStorage interface {
	SaveUploadedFile(fileHeader *multipart.FileHeader, subDir string) (string, error)
	DeleteFile(relativePath string) error
}

// ServiceImplementation implements Service over the GORM repository.
type ServiceImplementation struct {
	repo    Repository
	index   SearchIndex
	storage AvatarStorage
	cfg     *config.Config
	logger  *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service. index and storage may be nil.
func NewService(repo Repository, index SearchIndex, storage AvatarStorage, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:    repo,
		index:   index,
		storage: storage,
		cfg:     cfg,
		logger:  logger.Named("user_service"),
	}
}

// GetProfile returns common.ErrNotFound when the row does not exist.
func (s *ServiceImplementation) GetProfile(ctx context.Context, id string) (*shared.Profile, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("Error finding profile by ID", zap.Error(err), zap.String("userID", id))
		}
		return nil, err
	}
	return DBToShared(dbUser), nil
}

func (s *ServiceImplementation) UpsertProfile(ctx context.Context, p *shared.Profile) error {
	if p == nil || p.ID == "" {
		return common.ErrBadRequest.WithDetails("Profile ID is required.")
	}
	dbUser := SharedToDB(p)
	if dbUser.Handle == "" {
		dbUser.Handle = MakeHandle(dbUser.Name, dbUser.ID)
	}
	if dbUser.CreatedAt.IsZero() {
		dbUser.CreatedAt = time.Now()
	}
	if err := s.repo.Upsert(ctx, dbUser); err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	if s.index != nil {
		// the stored row wins over p when it already existed
		if stored, err := s.repo.FindByID(ctx, p.ID); err == nil {
			s.indexBestEffort(ctx, DBToShared(stored))
		}
	}
	return nil
}

func (s *ServiceImplementation) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.repo.TouchLastLogin(ctx, id, at); err != nil {
		return fmt.Errorf("touch last login %s: %w", id, err)
	}
	return nil
}

// UpdateProfile applies a user's own edits. A name change regenerates the handle.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*shared.Profile, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := dbUser.Name
	ApplyUpdate(req, dbUser)
	if strings.TrimSpace(dbUser.Name) == "" {
		return nil, common.ErrBadRequest.WithDetails("Name cannot be empty.")
	}
	if dbUser.Name != oldName || dbUser.Handle == "" {
		dbUser.Handle = MakeHandle(dbUser.Name, dbUser.ID)
	}
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err), zap.String("userID", id))
		return nil, err
	}
	profile := DBToShared(dbUser)
	s.indexBestEffort(ctx, profile)
	s.logger.Info("Profile updated", zap.String("userID", id))
	return profile, nil
}

// AwardActivity adds the points an activity is worth to the user's total.
func (s *ServiceImplementation) AwardActivity(ctx context.Context, id, activity string) (*shared.Profile, error) {
	points, ok := ActivityPoints[activity]
	if !ok {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown activity %q.", activity))
	}
	if err := s.repo.AddPoints(ctx, id, points); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("Failed to add points", zap.Error(err), zap.String("userID", id), zap.String("activity", activity))
		}
		return nil, err
	}
	s.logger.Info("Points awarded", zap.String("userID", id), zap.String("activity", activity), zap.Int("points", points))
	return s.GetProfile(ctx, id)
}

// Ranking returns the leaderboard ordered by total points.
func (s *ServiceImplementation) Ranking(ctx context.Context, limit int) ([]RankingEntry, error) {
	if limit <= 0 {
		limit = defaultRankingLimit
	}
	if limit > maxRankingLimit {
		limit = maxRankingLimit
	}
	users, err := s.repo.TopByPoints(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to load ranking", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not load the ranking.")
	}
	return ToRanking(users), nil
}

// Search looks profiles up by name or handle. Index failures fall back to the database.
func (s *ServiceImplementation) Search(ctx context.Context, query string, limit int) ([]shared.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.ErrBadRequest.WithDetails("Search query is required.")
	}
	if limit <= 0 || limit > maxRankingLimit {
		limit = defaultSearchLimit
	}

	var users []User
	searched := false
	if s.index != nil {
		ids, err := s.index.SearchProfileIDs(ctx, query, limit)
		if err != nil {
			s.logger.Warn("Profile index search failed, falling back to database", zap.Error(err))
		} else {
			users, err = s.repo.FindByIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("load searched profiles: %w", err)
			}
			users = orderByIDs(users, ids)
			searched = true
		}
	}
	if !searched {
		var err error
		users, err = s.repo.SearchByName(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("search profiles: %w", err)
		}
	}

	profiles := make([]shared.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, *DBToShared(&users[i]))
	}
	return profiles, nil
}

// UpdateAvatar stores an uploaded image, points the profile at it and removes the previous local avatar.
func (s *ServiceImplementation) UpdateAvatar(ctx context.Context, id string, file *multipart.FileHeader) (*shared.Profile, error) {
	if s.storage == nil {
		return nil, common.ErrServiceUnavailable.WithDetails("Avatar uploads are not enabled.")
	}
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rel, err := s.storage.SaveUploadedFile(file, avatarsSubDir)
	if err != nil {
		s.logger.Warn("Failed to store avatar", zap.Error(err), zap.String("userID", id))
		return nil, common.ErrBadRequest.WithDetails("Could not store the uploaded image.")
	}

	previous := dbUser.AvatarURL
	url := s.mediaURL(rel)
	dbUser.AvatarURL = &url
	if err := s.repo.Update(ctx, dbUser); err != nil {
		if delErr := s.storage.DeleteFile(rel); delErr != nil {
			s.logger.Warn("Failed to remove orphaned avatar", zap.Error(delErr), zap.String("path", rel))
		}
		return nil, err
	}

	if previous != nil {
		if oldRel, ok := s.localMediaPath(*previous); ok {
			if err := s.storage.DeleteFile(oldRel); err != nil {
				s.logger.Warn("Failed to delete previous avatar", zap.Error(err), zap.String("path", oldRel))
			}
		}
	}

	profile := DBToShared(dbUser)
	s.indexBestEffort(ctx, profile)
	return profile, nil
}

// ReindexAll pushes every profile row into the search index.
func (s *ServiceImplementation) ReindexAll(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, errors.New("no profile search index configured")
	}
	total := 0
	err := s.repo.EachBatch(ctx, reindexBatchSize, func(batch []User) error {
		profiles := make([]*shared.Profile, 0, len(batch))
		for i := range batch {
			profiles = append(profiles, DBToShared(&batch[i]))
		}
		if err := s.index.BulkIndex(ctx, profiles); err != nil {
			return err
		}
		total += len(profiles)
		s.logger.Info("Indexed profile batch", zap.Int("batch", len(profiles)), zap.Int("total", total))
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("reindex profiles: %w", err)
	}
	return total, nil
}

func (s *ServiceImplementation) indexBestEffort(ctx context.Context, p *shared.Profile) {
	if s.index == nil || p == nil {
		return
	}
	if err := s.index.IndexProfile(ctx, p); err != nil {
		s.logger.Warn("Failed to index profile", zap.Error(err), zap.String("userID", p.ID))
	}
}

func (s *ServiceImplementation) mediaURL(rel string) string {
	return strings.TrimRight(s.cfg.MediaBaseURL, "/") + "/" + rel
}

func (s *ServiceImplementation) localMediaPath(url string) (string, bool) {
	prefix := strings.TrimRight(s.cfg.MediaBaseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// MakeHandle builds the public handle: the slugified name plus a short id suffix.
func MakeHandle(name, id string) string {
	base := slug.Make(name)
	if base == "" {
		base = "perfil"
	}
	suffix := strings.ToLower(id)
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	if suffix == "" {
		return base
	}
	return base + "-" + slug.Make(suffix)
}

func orderByIDs(users []User, ids []string) []User {
	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]User, 0, len(users))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered
}
