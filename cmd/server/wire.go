// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"desirius_backend/internal/app"
	"desirius_backend/internal/auth"
	"desirius_backend/internal/config"
	"desirius_backend/internal/firebase"
	"desirius_backend/internal/jobs"
	"desirius_backend/internal/metrics"
	"desirius_backend/internal/platform/logger"
	"desirius_backend/internal/session"
	"desirius_backend/internal/shared"
	"desirius_backend/internal/user"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDatabase,
		provideSearchIndex,
		provideFileStorage,
		provideAvatarStorage,
		providePrometheusRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),

		// Identity provider
		firebase.NewFirebaseService,
		wire.Bind(new(shared.AuthClientFactory), new(*firebase.FirebaseService)),
		provideIdentityProvider,

		// Profiles
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(shared.ProfileStore), new(*user.ServiceImplementation)),

		// Sessions
		metrics.NewCollector,
		wire.Bind(new(session.Recorder), new(*metrics.Collector)),
		session.RegistryConfigFromConfig,
		session.OptionsFromConfig,
		session.NewRegistry,
		wire.Bind(new(jobs.LiveSessions), new(*session.Registry)),
		jobs.NewSessionWatchJob,

		// Handlers
		session.NewHandler,
		auth.NewHandler,
		user.NewHandler,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
