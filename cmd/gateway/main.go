package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/emporia-labs/emporia-backend/internal/config"
	"github.com/emporia-labs/emporia-backend/internal/gateway"
	"github.com/emporia-labs/emporia-backend/internal/logging"
	"github.com/emporia-labs/emporia-backend/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logging.New(os.Stdout, "gateway", cfg.LogLevel, cfg.LogFormat)

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	routes, err := gateway.LoadRoutes(cfg.Gateway, log)
	if err != nil {
		log.Error("failed to load gateway routes", "error", err)
		os.Exit(1)
	}
	if len(routes) == 0 {
		log.Error("no upstream services configured")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("gateway starting", "port", cfg.Port, "routes", len(routes))
	if err := server.ListenAndRun(ctx, cfg.Port, gateway.New(routes, cfg.CORSAllowedOrigins, log), log); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}
