package main

import (
	"context"
	"fmt"
	"os"

	"treasury/internal/config"
	"treasury/internal/database"
	"treasury/internal/logger"
	"treasury/internal/server"
	"treasury/internal/services"

	_ "treasury/internal/docs" // Import swagger docs
)

// @title           Treasury API
// @version         1.0
// @description     Fund ledger, event approval and monthly report allocation for a network of churches.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	ctx := context.Background()

	// Missing default grants are inserted and configured scope overrides
	// re-applied on every start.
	permissions := services.NewPermissionService(db)
	if err := permissions.Seed(ctx, cfg.RoleScopeOverrides); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}
	policy, err := permissions.LoadPolicy(ctx)
	if err != nil {
		return fmt.Errorf("failed to load permission policy: %w", err)
	}

	router, err := server.NewRouter(server.Config{
		Env:                cfg.Env,
		JWTSecret:          cfg.JWTSecret,
		JWTIssuer:          cfg.JWTIssuer,
		ImporterAPIKeyHash: cfg.ImporterAPIKeyHash,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimit,
	}, server.NewServices(db, permissions, policy))
	if err != nil {
		return err
	}

	if cfg.ImporterAPIKeyHash == "" {
		log.Warn("IMPORTER_API_KEY_HASH is empty, report import is disabled")
	}
	log.Infof("Starting treasury server on port %s", cfg.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
	return router.Run(":" + cfg.Port)
}
