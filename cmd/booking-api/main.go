package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/sevaproject/booking-api/api/swagger"
	"github.com/sevaproject/booking-api/internal/handler"
	"github.com/sevaproject/booking-api/internal/repository"
	"github.com/sevaproject/booking-api/internal/service"
	"github.com/sevaproject/booking-api/pkg/cache"
	"github.com/sevaproject/booking-api/pkg/config"
	"github.com/sevaproject/booking-api/pkg/database"
	"github.com/sevaproject/booking-api/pkg/jobs"
	"github.com/sevaproject/booking-api/pkg/logger"
	"github.com/sevaproject/booking-api/pkg/storage"
)

// @title Booking API
// @version 1.0.0
// @description Provider availability and booking lifecycle service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	availabilitySvc := service.NewAvailabilityService(scheduleRepo, exceptionRepo, cacheRepo, cfg.Availability.CacheTTL, metricsSvc, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, exceptionRepo, cacheRepo, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, availabilitySvc, validate, metricsSvc, logr)

	notificationSvc := service.NewNotificationService(service.NewLogDispatcher(logr), jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	viewSvc := service.NewBookingViewService(bookingSvc, notificationSvc, cfg.Bookings.TransitionTimeout, logr)
	ratingSvc := service.NewRatingService(bookingRepo, metricsSvc, logr)
	exportSvc := service.NewExportService(bookingRepo, store, signer, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exportSvc.CleanupExpired(cfg.Exports.SignedURLTTL)
			}
		}
	}()

	r := handler.NewRouter(cfg, logr, handler.Services{
		Auth:         authSvc,
		Schedule:     scheduleSvc,
		Availability: availabilitySvc,
		Bookings:     bookingSvc,
		BookingView:  viewSvc,
		Ratings:      ratingSvc,
		Exports:      exportSvc,
		Metrics:      metricsSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
