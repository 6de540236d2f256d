package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"workmap/internal/common/config"
	"workmap/internal/common/contextx"
	"workmap/internal/common/log"
	"workmap/internal/devserver"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.New("workmap-devserver")
	ctx = contextx.WithRequestID(ctx, "startup-001")
	log.Info(ctx, logger, "init_start", "Dev server initializing...")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Error(ctx, logger, "config_load_fail", "Failed to load config file", err)
		os.Exit(1)
	}
	if cfg.Server.JWTSecret == "" {
		log.Error(ctx, logger, "config_invalid", "server.jwt_secret is required", nil)
		os.Exit(1)
	}
	log.Info(ctx, logger, "config_loaded", "Configuration loaded successfully")

	srv, err := devserver.New(ctx, cfg, logger)
	if err != nil {
		log.Error(ctx, logger, "init_fail", "Failed to initialize server", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info(ctx, logger, "shutdown", "Dev server shutting down...")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		log.Error(ctx, logger, "server_error", "Server terminated with error", err)
		os.Exit(1)
	}
	log.Info(ctx, logger, "shutdown_complete", "Server stopped successfully")
}
