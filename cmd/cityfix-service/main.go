package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cityfix-service/internal/auth"
	"cityfix-service/internal/cache"
	"cityfix-service/internal/client"
	"cityfix-service/internal/config"
	"cityfix-service/internal/db"
	httphandler "cityfix-service/internal/http"
	"cityfix-service/internal/http/middleware"
	"cityfix-service/internal/logger"
	"cityfix-service/internal/repository"
	"cityfix-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		appLogger.Warn().Err(err).Msg("redis unavailable, statistics cache disabled")
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		redisCache := repository.NewCacheRepository(redisClient, appLogger)
		defer redisCache.Close()
		cacheRepo = redisCache
	}
	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, appLogger)

	txManager := repository.NewTxManager(database)
	ticketRepo := repository.NewTicketRepository(database)
	userRepo := repository.NewUserRepository(database)
	municipalityRepo := repository.NewMunicipalityRepository(database)

	geocoder := client.NewGeocodeClient(cfg.Geocoder)

	notificationService := service.NewNotificationService(
		repository.NewNotificationRepository(database),
		repository.NewPreferenceRepository(database),
		cfg.Notifications.PageSize,
		appLogger,
	)
	ticketService := service.NewTicketService(service.TicketServiceDeps{
		Tx:             txManager,
		Tickets:        ticketRepo,
		Comments:       repository.NewCommentRepository(database),
		Feedback:       repository.NewFeedbackRepository(database),
		Assignments:    repository.NewAssignmentRepository(database),
		Users:          userRepo,
		Municipalities: municipalityRepo,
		Notifications:  notificationService,
		Geocoder:       geocoder,
		Metrics:        metrics,
		Log:            appLogger,
	})
	userService := service.NewUserService(
		userRepo,
		municipalityRepo,
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.AccessTTL),
		appLogger,
	)
	municipalityService := service.NewMunicipalityService(municipalityRepo, repository.NewBoundaryRepository(database), cacheService, appLogger)
	statsService := service.NewStatsService(repository.NewStatsRepository(database), municipalityRepo, userRepo, cacheService, cfg.Stats.CacheTTL, appLogger)
	mediaService := service.NewMediaService(ticketRepo, repository.NewMediaRepository(database), cfg.Media.UploadDir, cfg.Media.MaxFileSize, appLogger)
	geoService := service.NewGeoService(geocoder, appLogger)

	handler := httphandler.NewHandler(httphandler.Services{
		Tickets:        ticketService,
		Notifications:  notificationService,
		Users:          userService,
		Municipalities: municipalityService,
		Stats:          statsService,
		Media:          mediaService,
		Geo:            geoService,
	}, appLogger)
	authMiddleware := middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret))
	router := httphandler.NewRouter(handler, authMiddleware, metrics, cfg, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		appLogger.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("starting cityfix service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	appLogger.Info().Msg("shutdown complete")
}
