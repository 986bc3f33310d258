package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/cache"
	"memory-tracker-backend/internal/config"
	"memory-tracker-backend/internal/database"
	"memory-tracker-backend/internal/handlers"
	"memory-tracker-backend/internal/repository"
	"memory-tracker-backend/internal/services"
	"memory-tracker-backend/internal/validator"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	loginAttempts = 5
	loginWindow   = 15 * time.Minute
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.MigrateURL()); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Optional redis for the subject cache and login throttling
	var (
		subjectCache access.SubjectCache
		limiter      services.LoginLimiter
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")

		subjectCache = cache.NewSubjectCache(rdb, cfg.Redis.SubjectTTL)
		limiter = cache.NewRateLimiter(rdb, loginAttempts, loginWindow)
	}

	// Initialize repositories
	patientRepo := repository.NewPatientRepository(db)
	familyRepo := repository.NewFamilyMemberRepository(db)
	memoryRepo := repository.NewMemoryRepository(db)

	// Initialize services
	validate := validator.New()
	resolver := access.NewResolver(familyRepo, subjectCache)
	accountService := services.NewAccountService(
		patientRepo,
		familyRepo,
		limiter,
		validate,
		cfg.JWT.Secret,
		cfg.JWT.Expires,
	)

	s3Client, err := services.NewS3Client(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 client")
	}
	uploadService := services.NewUploadService(s3.NewPresignClient(s3Client), resolver, validate, cfg.AWS)

	var notifier services.MemoryNotifier
	if cfg.APNs.Enabled {
		apnsClient, err := services.NewAPNsClient(cfg.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		notifier = services.NewNotifier(apnsClient, cfg.APNs.Topic, patientRepo, familyRepo)
	}

	wsHub := services.NewWSHub()
	memoryService := services.NewMemoryService(memoryRepo, resolver, validate, wsHub, notifier)

	// Setup router
	router := handlers.NewRouter(handlers.Router{
		Auth:      handlers.NewAuthHandler(accountService),
		Profile:   handlers.NewProfileHandler(accountService),
		Memory:    handlers.NewMemoryHandler(memoryService),
		Upload:    handlers.NewUploadHandler(uploadService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, accountService, resolver),
		Tokens:    accountService,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server. Hijacked WebSocket connections are not tracked
	// by Shutdown and close when the process exits.
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
