package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/migrations"
	"github.com/guidepost-labs/guidepost-engine/pkg/config"
	"github.com/guidepost-labs/guidepost-engine/pkg/database"
	"github.com/guidepost-labs/guidepost-engine/pkg/handlers"
	"github.com/guidepost-labs/guidepost-engine/pkg/identity"
	"github.com/guidepost-labs/guidepost-engine/pkg/middleware"
	"github.com/guidepost-labs/guidepost-engine/pkg/repositories"
	"github.com/guidepost-labs/guidepost-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Database),
		zap.String("redis_host", cfg.Redis.Host))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(&database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	var skips services.SessionSkipStore
	if redisClient != nil {
		skips = services.NewRedisSkipStore(redisClient)
	} else {
		logger.Info("Redis not configured, using in-memory session skip store")
		skips = services.NewMemorySkipStore()
	}

	// Repositories
	tourRepo := repositories.NewTourRepository()
	stepRepo := repositories.NewStepRepository()
	trackingRepo := repositories.NewTrackingRepository()

	// Services
	tourService := services.NewTourService(tourRepo, stepRepo, trackingRepo, logger)
	queryService := services.NewTourQueryService(tourRepo, stepRepo, trackingRepo, skips,
		services.NoopContentProcessor{}, cfg.Tours.URLTriggerParam, logger)
	trackingService := services.NewTrackingService(trackingRepo, skips, logger)

	if cfg.Tours.SeedFile != "" {
		if err := seedTours(db, tourRepo, stepRepo, cfg.Tours.SeedFile, logger); err != nil {
			logger.Fatal("Failed to seed tours", zap.Error(err))
		}
	}

	// Identity boundary
	verifier, err := identity.NewJWKSVerifier(&identity.VerifierConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
		Issuer:             cfg.Auth.Issuer,
	})
	if err != nil {
		logger.Fatal("Failed to create token verifier", zap.Error(err))
	}
	auth := identity.NewMiddleware(verifier, []byte(cfg.Auth.SessionKey), cfg.Auth.SessionCookie, logger)

	scoped := database.WithRequestScope(db, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	tourHandler := handlers.NewTourHandler(tourService, logger)
	tourHandler.RegisterRoutes(mux, auth, scoped)

	pageTourHandler := handlers.NewPageTourHandler(queryService, trackingService, logger)
	pageTourHandler.RegisterRoutes(mux, auth, scoped)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting guidepost-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations applies the embedded migrations over database/sql, which is
// what golang-migrate expects.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, migrations.FS, logger)
}

// seedTours creates the tours from the configured seed file inside a
// short-lived connection scope.
func seedTours(db *database.DB, tourRepo repositories.TourRepository, stepRepo repositories.StepRepository, path string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scope, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer scope.Close()

	seeder := services.NewSeeder(tourRepo, stepRepo, logger)
	_, err = seeder.SeedFromFile(database.SetScope(ctx, scope), path)
	return err
}
