package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"iot-monitor/cache"
	"iot-monitor/confs"
	"iot-monitor/db"
	"iot-monitor/server"
	"iot-monitor/storage"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// load config
	cfg, err := confs.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		dsn, err := db.DSN(cfg)
		if err != nil {
			logger.Fatal("database config", zap.Error(err))
		}
		if err := db.Migrate(dsn, "up"); err != nil && !errors.Is(err, db.ErrNoChange) {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	// connect to database Postgres
	database, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer database.Close()

	presence, err := newPresence(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	store, err := storage.NewArtifactStore(afero.NewOsFs(), cfg.ExportDir)
	if err != nil {
		logger.Fatal("export directory unavailable", zap.String("dir", cfg.ExportDir), zap.Error(err))
	}

	srv := server.NewServer(cfg, database, presence, store, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *confs.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newPresence picks Redis when REDIS_URL is set, otherwise an in-process map
// that is pruned once per TTL until ctx ends.
func newPresence(ctx context.Context, cfg *confs.Config, logger *zap.Logger) (cache.PresenceTracker, error) {
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis for device presence")
		return cache.NewRedisPresence(client, cfg.PresenceTTL()), nil
	}

	logger.Info("using in-memory cache for device presence")
	mem := cache.NewMemoryPresence(cfg.PresenceTTL())
	go func() {
		ticker := time.NewTicker(cfg.PresenceTTL())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Prune(); n > 0 {
					logger.Debug("pruned device presence", zap.Int("removed", n))
				}
			}
		}
	}()
	return mem, nil
}
