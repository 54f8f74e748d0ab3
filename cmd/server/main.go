package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/db"
	"github.com/utleieskade/backend/internal/email"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/payments"
	"github.com/utleieskade/backend/internal/realtime"
	"github.com/utleieskade/backend/internal/routes"
	"github.com/utleieskade/backend/internal/services"
	"github.com/utleieskade/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}
	// Initialize logger after .env is loaded so LOG_LEVEL and LOG_FILE apply
	logger.Initialize()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The listener starts right away; API routes answer 503 until the first ping succeeds.
	go func() {
		if err := database.WaitReady(ctx); err != nil {
			return
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(database.DB); err != nil {
				logger.WithError(err, "server").Error("Auto-migration failed")
			}
		}
	}()

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.ElevatedTTL).WithSessionTTL(cfg.JWT.SessionTTL)
	hub := realtime.NewHub()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", map[string]interface{}{"error": err.Error()})
	}

	deps := services.Deps{
		DB:       database.DB,
		Tokens:   tokens,
		Gateway:  newGateway(cfg),
		Mailer:   email.New(cfg.SMTP),
		Store:    store,
		Emitter:  hub,
		OTPStore: newOTPStore(ctx, cfg, database),
		BaseURL:  cfg.PublicBaseURL,
	}
	svc := services.New(deps)

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Database: database,
		Services: svc,
		Tokens:   tokens,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting Utleieskade backend server", map[string]interface{}{
		"port":     cfg.Port,
		"env":      cfg.Env,
		"dialect":  cfg.Database.Dialect,
		"storage":  store.Name(),
		"gin_mode": gin.Mode(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func newGateway(cfg *config.Config) payments.Gateway {
	if cfg.Stripe.SecretKey != "" {
		return payments.NewStripeGateway(cfg.Stripe.SecretKey)
	}
	if cfg.IsProduction() {
		logger.Fatal("STRIPE_SECRET_KEY is required in production", nil)
	}
	logger.Warn("STRIPE_SECRET_KEY not set, using the offline payment gateway", nil)
	return payments.NewOfflineGateway(true)
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	local, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	if !cfg.S3.Enabled() {
		return storage.NewFallbackStore(nil, local), nil
	}
	s3Store, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		logger.WithError(err, "server").Warn("S3 unavailable, storing uploads on local disk")
		return storage.NewFallbackStore(nil, local), nil
	}
	return storage.NewFallbackStore(s3Store, local), nil
}

func newOTPStore(ctx context.Context, cfg *config.Config, database *db.Database) services.OTPStore {
	if cfg.Redis.Addr == "" {
		return services.NewDBOTPStore(database.DB)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err, "server").Warn("Redis unreachable, keeping one-time codes in the database")
		client.Close()
		return services.NewDBOTPStore(database.DB)
	}
	return services.NewRedisOTPStore(client)
}
