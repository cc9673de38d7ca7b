package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/cache"
	"github.com/emporia-labs/emporia-backend/internal/config"
	"github.com/emporia-labs/emporia-backend/internal/database"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/handler"
	"github.com/emporia-labs/emporia-backend/internal/logging"
	"github.com/emporia-labs/emporia-backend/internal/repository"
	"github.com/emporia-labs/emporia-backend/internal/router"
	"github.com/emporia-labs/emporia-backend/internal/server"
	"github.com/emporia-labs/emporia-backend/internal/storage"
)

func main() {
	// Load .env file if exists
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logging.New(os.Stdout, "catalog", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("catalog service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	var c cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cfg.RedisAddr, cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unreachable, caching disabled", "addr", cfg.RedisAddr, "error", err)
			rc.Close()
		} else {
			defer rc.Close()
			c = rc
			log.Info("redis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPublishTimeout, log)
		defer kp.Close()
		pub = kp
		log.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Google Drive is optional; without it image uploads answer 503.
	var images storage.ImageStore = storage.Disabled{}
	if cfg.GDriveCredentialsPath != "" && cfg.GDriveTokenPath != "" && cfg.GDriveFolderID != "" {
		gdrive, err := storage.NewGDriveService(ctx, cfg.GDriveCredentialsPath, cfg.GDriveTokenPath, cfg.GDriveFolderID, log)
		if err != nil {
			log.Warn("failed to initialize Google Drive service, image uploads disabled", "error", err)
		} else {
			images = gdrive
			log.Info("Google Drive service initialized")
		}
	} else {
		log.Info("Google Drive credentials not configured, image uploads disabled")
	}

	store := repository.NewStore(db)
	h := router.NewCatalog(router.CatalogDeps{
		Categories:  handler.NewCategoryHandler(store, c, pub, log),
		Products:    handler.NewProductHandler(store, images, cfg.StorefrontBaseURL, c, pub, log),
		JWT:         auth.NewJWTManager(cfg),
		DB:          db,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	log.Info("catalog service starting", "port", cfg.Port, "env", cfg.Environment)
	return server.ListenAndRun(ctx, cfg.Port, h, log)
}

func openDatabase(cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Run migrations in dev environment
	if cfg.Environment == "dev" {
		dir := filepath.Join(cfg.MigrationsDir, "catalog")
		log.Info("running database migrations", "dir", dir)
		if err := database.Migrate(cfg.DatabaseURL, dir); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("migrations completed")
	}
	return db, nil
}
