// File: cmd/server/providers.go
package main

import (
	"context"
	"time"

	"desirius_backend/internal/auth"
	"desirius_backend/internal/config"
	"desirius_backend/internal/filestorage"
	"desirius_backend/internal/platform/database"
	platformElasticsearch "desirius_backend/internal/platform/elasticsearch"
	"desirius_backend/internal/session"
	"desirius_backend/internal/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const indexSetupTimeout = 15 * time.Second

// provideDatabase opens the profile database, migrates it when DB_AUTO_MIGRATE is set
// and returns the cleanup that closes the pool.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db, &user.User{}); err != nil {
			database.CloseGORMDB(db, logger)
			return nil, nil, err
		}
		logger.Info("Database schema migrated")
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

// provideSearchIndex returns the Elasticsearch profile directory, or nil when the
// cluster is not reachable. Profile search then falls back to the database.
func provideSearchIndex(cfg *config.Config, logger *zap.Logger) user.SearchIndex {
	client, err := platformElasticsearch.NewClient(cfg, logger)
	if err != nil {
		logger.Warn("Elasticsearch unavailable, profile search will use the database", zap.Error(err))
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexSetupTimeout)
	defer cancel()
	if err := platformElasticsearch.CreateProfilesIndexIfNotExists(ctx, client, logger); err != nil {
		logger.Warn("Failed to create profiles index, profile search will use the database", zap.Error(err))
		return nil
	}
	return platformElasticsearch.NewProfileIndex(client, logger)
}

func provideFileStorage(cfg *config.Config, logger *zap.Logger) (*filestorage.FileStorageService, error) {
	return filestorage.NewFileStorageService(cfg.MediaStoragePath, logger)
}

func provideAvatarStorage(fs *filestorage.FileStorageService) user.AvatarStorage {
	return fs
}

// provideIdentityProvider keeps an unconfigured Google provider a nil interface.
func provideIdentityProvider(cfg *config.Config) session.IdentityProvider {
	if p := auth.NewGoogleProvider(cfg); p != nil {
		return p
	}
	return nil
}

func providePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
