// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"desirius_backend/internal/auth"
	"desirius_backend/internal/config"
	"desirius_backend/internal/filestorage"
	"desirius_backend/internal/jobs"
	"desirius_backend/internal/metrics"
	"desirius_backend/internal/middleware"
	"desirius_backend/internal/session"
	"desirius_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// rateLimitCleanup is how often idle per-IP buckets are dropped.
const rateLimitCleanup = 5 * time.Minute

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	registry *session.Registry
	watchJob *jobs.SessionWatchJob
}

// NewServer creates a new instance of our application server.
// storage may be nil, in which case /media is not served.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	registry *session.Registry,
	sessionHandler *session.Handler,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	watchJob *jobs.SessionWatchJob,
	gatherer prometheus.Gatherer,
	storage *filestorage.FileStorageService,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// The session cookie travels cross-origin from the storefront, so origins must be explicit.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.AppBaseURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "De Sírius API is healthy!", "sessions": registry.Len()})
	})
	if gatherer != nil {
		metrics.RegisterRoute(router, gatherer)
	}
	if storage != nil {
		router.Static("/media", storage.Root())
	}

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute, rateLimitCleanup, logger.Named("rate_limiter"))
	awardLimiter := middleware.NewWindowRateLimiter(cfg.PointsAwardsPerHour, time.Hour, rateLimitCleanup, logger.Named("award_limiter"))
	guard := middleware.RequireSession(logger.Named("session_guard"))
	loader := middleware.SessionLoader(registry, cfg, logger.Named("session_loader"))

	v1 := router.Group("/api/v1")
	// only routes that act on the browser session open a controller
	sessioned := v1.Group("", loader)

	sessionHandler.RegisterRoutes(sessioned)
	authHandler.RegisterRoutes(sessioned, limiter.Middleware(), guard)
	userHandler.RegisterRoutes(v1, awardLimiter.KeyedMiddleware(middleware.ProfileRateKey), loader, guard)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
		// register and login can take MaxAttempts fetches plus retry delays
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		watchJob:   watchJob,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.watchJob != nil {
		if err := s.watchJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start session watchdog", zap.Error(err))
		}
	} else {
		s.logger.Info("Session watchdog is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops accepting requests, then stops the watchdog and closes every browser session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	err := s.httpServer.Shutdown(ctx)
	if s.watchJob != nil {
		s.watchJob.Stop()
	}
	s.registry.Close()
	return err
}
