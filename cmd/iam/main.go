package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/config"
	"github.com/emporia-labs/emporia-backend/internal/database"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/handler"
	"github.com/emporia-labs/emporia-backend/internal/logging"
	"github.com/emporia-labs/emporia-backend/internal/repository"
	"github.com/emporia-labs/emporia-backend/internal/router"
	"github.com/emporia-labs/emporia-backend/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logging.New(os.Stdout, "iam", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("iam service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Environment == "dev" {
		dir := filepath.Join(cfg.MigrationsDir, "iam")
		log.Info("running database migrations", "dir", dir)
		if err := database.Migrate(cfg.DatabaseURL, dir); err != nil {
			return err
		}
		log.Info("migrations completed")
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPublishTimeout, log)
		defer kp.Close()
		pub = kp
		log.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	store := repository.NewStore(db)
	jwtManager := auth.NewJWTManager(cfg)

	h := router.NewIAM(router.IAMDeps{
		Auth:        handler.NewAuthHandler(store, jwtManager, cfg.CookieSecure, log),
		Customers:   handler.NewCustomerHandler(store, pub, log),
		Employees:   handler.NewEmployeeHandler(store, pub, log),
		JWT:         jwtManager,
		DB:          db,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	log.Info("iam service starting", "port", cfg.Port, "env", cfg.Environment)
	return server.ListenAndRun(ctx, cfg.Port, h, log)
}
