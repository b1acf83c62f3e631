package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/doarbem/doar-api/internal/config"
	authHandler "github.com/doarbem/doar-api/internal/handler/auth"
	donationHandler "github.com/doarbem/doar-api/internal/handler/donation"
	healthHandler "github.com/doarbem/doar-api/internal/handler/health"
	institutionHandler "github.com/doarbem/doar-api/internal/handler/institution"
	notificationHandler "github.com/doarbem/doar-api/internal/handler/notification"
	promHandler "github.com/doarbem/doar-api/internal/handler/prometheus"
	ratingHandler "github.com/doarbem/doar-api/internal/handler/rating"
	"github.com/doarbem/doar-api/internal/middleware"
	"github.com/doarbem/doar-api/internal/repository/postgres"
	"github.com/doarbem/doar-api/internal/router"
	authService "github.com/doarbem/doar-api/internal/service/auth"
	donationService "github.com/doarbem/doar-api/internal/service/donation"
	institutionService "github.com/doarbem/doar-api/internal/service/institution"
	notificationService "github.com/doarbem/doar-api/internal/service/notification"
	ratingService "github.com/doarbem/doar-api/internal/service/rating"
	"github.com/doarbem/doar-api/pkg/auth"
	"github.com/doarbem/doar-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	donationRepo := postgres.NewDonationRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)
	institutionRepo := postgres.NewInstitutionRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	userRepo := postgres.NewUserRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	notificationSvc := notificationService.NewService(notificationRepo, donationRepo)
	donationSvc := donationService.NewService(donationRepo, projectRepo, notificationSvc)
	ratingSvc := ratingService.NewService(ratingRepo, donationRepo, institutionRepo, projectRepo, outboxRepo)
	institutionSvc := institutionService.NewService(institutionRepo, projectRepo)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(userRepo, security.NewBcryptHasher(12), tokens)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	r := router.New(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		donationHandler.NewHandler(donationSvc),
		notificationHandler.NewHandler(notificationSvc),
		ratingHandler.NewHandler(ratingSvc),
		institutionHandler.NewHandler(institutionSvc, ratingSvc),
		healthHandler.NewHandler(db),
		promHandler.New(),
		router.Config{
			RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:  cfg.RateLimit.Burst,
			CORSConfig: middleware.DefaultCORSConfig(),
			Timeout:    cfg.Server.WriteTimeout,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
