package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"tourguard-backend/internal/config"
	"tourguard-backend/internal/httpapi"
	"tourguard-backend/internal/monitor"
	"tourguard-backend/internal/notifier"
	"tourguard-backend/internal/repository"
	"tourguard-backend/internal/service"
	"tourguard-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	tours := repository.NewToursRepository(db, logger)
	notifications := repository.NewNotificationsRepository(db, logger)
	users := repository.NewUsersRepository(db, logger)

	authService := service.NewAuthService(
		users,
		store.NewRedisKV(redisClient),
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLHour)*time.Hour,
		logger,
	)
	tourService := service.NewTourService(tours, logger)

	dispatcher := notifier.NewDispatcher(
		notifications,
		newSender(cfg, logger),
		cfg.Monitor.EmergencyBaseURL,
		logger,
	)

	overdueMonitor := monitor.New(
		tours,
		dispatcher,
		time.Duration(cfg.Monitor.IntervalMinutes)*time.Minute,
		logger,
	)

	server := httpapi.NewServer(authService, tourService, dispatcher, notifications, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(cfg.Server.FrontendURL),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)
	go func() {
		if err := overdueMonitor.Start(ctx); err != nil {
			errChan <- fmt.Errorf("monitor: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-errChan:
		logger.Error("Service error", zap.Error(err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("TourGuard backend stopped")
}

// newSender picks the SMS transport. Without an API key, or outside
// production, alerts are logged instead of sent.
func newSender(cfg *config.Config, logger *zap.Logger) notifier.SMSSender {
	if cfg.SMS.APIKey == "" || cfg.Env != "production" {
		logger.Info("SMS offline mode enabled, alerts will be logged only")
		return notifier.NewLogSender(logger)
	}
	return notifier.NewSMSClient(cfg.SMS.APIURL, cfg.SMS.APIKey, logger)
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
