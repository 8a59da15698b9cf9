package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/db"
	"github.com/vincentrandon/freelance-project-saas/handlers"
	"github.com/vincentrandon/freelance-project-saas/internal/ai"
	"github.com/vincentrandon/freelance-project-saas/internal/store/postgres"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/models/preview/matcher"
	"github.com/vincentrandon/freelance-project-saas/models/preview/quality"
	"github.com/vincentrandon/freelance-project-saas/models/preview/scorer"
	"github.com/vincentrandon/freelance-project-saas/models/preview/service"
	"github.com/vincentrandon/freelance-project-saas/router"
	"github.com/vincentrandon/freelance-project-saas/services"
)

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Apply schema migrations before opening the pool
	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize database connection
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	if cfg.Server.Environment == config.EnvProduction {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}

	log.Infow("Connecting to database", "connection", logger.MaskConnectionString(connStr))
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize Redis client with TLS in production
	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.PoolSize > 0 {
		redisOptions.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer redisClient.Close()

	// Stores and upstream clients
	dataStore := postgres.NewStore(pool)

	extractionClient, err := ai.NewExtractionClient(cfg.AIService)
	if err != nil {
		log.Fatalf("Failed to create extraction client: %v", err)
	}
	suggestionClient := ai.NewSuggestionClient(cfg.AIService)

	// Services
	feedbackService := services.NewRedisFeedbackService(redisClient)
	healthService := services.NewHealthService(pool, redisClient, cfg.Server.Version)

	entityMatcher := matcher.New(dataStore.Customers(), dataStore.Projects(), cfg.Reconciliation)
	confidenceScorer := scorer.New(cfg.Reconciliation)
	qualityAnalyzer := quality.New(cfg.Reconciliation, suggestionClient)
	approvalExecutor := service.NewApprovalExecutor(dataStore, feedbackService)

	previewService := service.NewPreviewService(
		dataStore,
		entityMatcher,
		confidenceScorer,
		qualityAnalyzer,
		approvalExecutor,
		feedbackService,
		cfg.Reconciliation,
	)
	batchService := service.NewBatchService(dataStore, previewService, cfg.Reconciliation)

	// Handlers and router
	deps := router.Dependencies{
		Config:          cfg,
		PreviewHandler:  handlers.NewPreviewHandler(previewService),
		BatchHandler:    handlers.NewBatchHandler(batchService),
		DocumentHandler: handlers.NewDocumentHandler(extractionClient, previewService),
		HealthHandler:   handlers.NewHealthHandler(healthService),
		Logger:          log,
	}
	r := router.SetupRouter(deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
}
