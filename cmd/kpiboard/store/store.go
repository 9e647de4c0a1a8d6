// Package store selects the kpiboard storage backend from configuration.
//
// Backends:
//
//   - memory: process-local map, lost on restart. Useful for tests and
//     throwaway sessions.
//
//   - file: a single JSON document on disk. The default, so settings, the
//     response cache and MRR history survive restarts on one machine.
//
//   - redis: shared storage for several kpiboard instances.
//
// Initialization is fail-fast: an unreachable backend exits the process
// before the dashboard starts.
package store

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/HatiCode/kpiboard/cmd/kpiboard/config"
	"github.com/HatiCode/kpiboard/pkg/storage"
)

// New creates the configured backend. It calls os.Exit(1) on failure and
// never returns nil.
func New(cfg *config.Config, logger *slog.Logger) storage.Store {
	switch cfg.Storage {
	case "redis":
		logger.Info("initializing redis storage",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"prefix", cfg.RedisPrefix,
		)
		redisStore, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, 0)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(ctx); err != nil {
			logger.Error("redis health check failed", "error", err)
			os.Exit(1)
		}
		logger.Info("redis storage initialized successfully")

		return redisStore
	case "file":
		fileStore, err := storage.NewFileStore(cfg.DataFile)
		if err != nil {
			logger.Error("failed to open data file", "path", cfg.DataFile, "error", err)
			os.Exit(1)
		}
		logger.Info("file storage initialized", "path", fileStore.Path())
		return fileStore
	case "memory":
		logger.Info("initializing in-memory storage")
		return storage.NewMemoryStore()

	default:
		logger.Error("invalid storage type", "storage", cfg.Storage)
		os.Exit(1)
	}

	return nil
}

// Close releases backend resources when the store holds any.
func Close(s storage.Store) error {
	if closer, ok := s.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
