// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"desirius_backend/internal/config"
	"desirius_backend/internal/platform/database"
	platformElasticsearch "desirius_backend/internal/platform/elasticsearch"
	"desirius_backend/internal/platform/logger"
	"desirius_backend/internal/user"

	"go.uber.org/zap"
)

func main() {
	reindexCmd := flag.NewFlagSet("reindex-profiles", flag.ExitOnError)
	reindexTimeout := reindexCmd.Duration("timeout", 30*time.Minute, "Maximum time allowed for the whole reindex")

	if len(os.Args) > 1 && os.Args[1] == "reindex-profiles" {
		if err := reindexCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		if err := runReindex(*reindexTimeout); err != nil {
			log.Fatalf("FATAL: Profile reindex failed: %v", err)
		}
		return
	}

	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("ERROR: Server failed: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

// runReindex pushes every profile row into the Elasticsearch profile directory.
func runReindex(timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		return err
	}
	defer database.CloseGORMDB(db, appLogger)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := platformElasticsearch.CreateProfilesIndexIfNotExists(ctx, esClient, appLogger); err != nil {
		return err
	}

	svc := user.NewService(user.NewGORMRepository(db), platformElasticsearch.NewProfileIndex(esClient, appLogger), nil, cfg, appLogger)
	total, err := svc.ReindexAll(ctx)
	if err != nil {
		appLogger.Error("Profile reindex stopped", zap.Int("indexed", total), zap.Error(err))
		return err
	}
	appLogger.Info("Profile reindex completed", zap.Int("indexed", total))
	return nil
}
