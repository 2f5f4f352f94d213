package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Info().Str("environment", string(config.GetEnvironment())).Msg("configuration loaded")

	db, err := database.Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		// Rate limiting and the short link cache are optional
		logging.Warn().Err(err).Msg("redis unavailable, continuing without it")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv := server.New(cfg, db, redisClient)

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logging.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("received signal")
	}

	logging.Info().Msg("shutting down server")
	if err := srv.Shutdown(context.Background()); err != nil {
		logging.Fatal().Err(err).Msg("server shutdown error")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logging.Info().Msg("server stopped")
}
