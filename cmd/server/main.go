package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/api"
	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/events"
	"github.com/parley-chat/parley/internal/service"
	"github.com/parley-chat/parley/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the data store
	var (
		dataStore store.DataStore
		err       error
	)
	switch cfg.Store {
	case "postgres":
		dataStore, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		logger.Info().Msg("connected to PostgreSQL")
	default:
		dataStore, err = store.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("mongodb connection failed")
		}
		logger.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")
	}
	defer dataStore.Close()

	// Initialize the event publisher
	var publisher events.Publisher
	switch cfg.Events {
	case "redis":
		publisher, err = events.NewRedisPublisher(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		logger.Info().Msg("publishing events via Redis")
	case "nats":
		publisher, err = events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connection failed")
		}
		logger.Info().Msg("publishing events via NATS")
	default:
		publisher = events.NopPublisher{}
		logger.Warn().Msg("event publishing disabled")
	}
	defer publisher.Close()

	// Wire the core services once at startup
	rooms := service.NewRoomService(dataStore, publisher, auth.NewBcryptHasher(), logger)
	rooms.SetRecentWindow(cfg.RecentWindow)
	receipts := service.NewReadReceiptService(dataStore, logger)

	// Create router
	router := api.NewRouter(logger, dataStore, rooms, receipts)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("store", cfg.Store).
			Msg("starting parley server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
