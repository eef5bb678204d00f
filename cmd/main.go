package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/scorekeeper/config"
	"github.com/Dosada05/scorekeeper/db"
	"github.com/Dosada05/scorekeeper/handlers"
	"github.com/Dosada05/scorekeeper/live"
	"github.com/Dosada05/scorekeeper/repositories"
	api "github.com/Dosada05/scorekeeper/routes"
	"github.com/Dosada05/scorekeeper/services"
	"github.com/Dosada05/scorekeeper/storage"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Error("failed to apply database schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	var uploader storage.FileUploader
	if cfg.R2 != nil {
		uploader, err = storage.NewR2Uploader(ctx, storage.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Warn("R2 storage not configured, avatar uploads are disabled")
	}

	wsHub := live.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		wsHub.Run(ctx)
	}()
	logger.Info("WebSocket hub started")

	notifier := live.Fanout{wsHub}
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = live.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		notifier = append(notifier, live.NewRedisQueue(redisClient, cfg.EventsQueueName))
		logger.Info("redis event queue enabled", slog.String("addr", cfg.RedisAddr))
	}

	tx := repositories.NewPostgresTransactor(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	sessionRepo := repositories.NewPostgresSessionRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	winnerRepo := repositories.NewPostgresWinnerRepository(dbConn)
	gameLogRepo := repositories.NewPostgresGameLogRepository(dbConn)
	logger.Info("repositories initialized")

	playerService := services.NewPlayerService(tx, playerRepo, uploader, logger)
	sessionService := services.NewSessionService(tx, sessionRepo, participantRepo, playerRepo, roundRepo, winnerRepo, gameLogRepo, notifier, logger)
	scoringService := services.NewScoringService(tx, sessionRepo, participantRepo, roundRepo, gameLogRepo, notifier, logger)
	historyService := services.NewHistoryService(sessionRepo, participantRepo, roundRepo, winnerRepo, gameLogRepo, logger)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Player:    handlers.NewPlayerHandler(playerService),
		Session:   handlers.NewSessionHandler(sessionService, scoringService),
		History:   handlers.NewHistoryHandler(historyService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, historyService, cfg.AllowedOrigins, logger),
	}, cfg.JWTSecretKey, cfg.AllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			<-hubDone
			os.Exit(1)
		}
		logger.Info("server stopped")
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}

	stop()
	<-hubDone
	logger.Info("application exited")
}
