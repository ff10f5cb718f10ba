package main

import (
	"context"
	"log"
	"time"

	"github.com/anonto42/medfeed/backend/internal/bootstrap"
	"github.com/anonto42/medfeed/backend/internal/realtime"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/anonto42/medfeed/backend/internal/router"
	"github.com/anonto42/medfeed/backend/pkg/config"
	"github.com/anonto42/medfeed/backend/pkg/logger"
	"github.com/anonto42/medfeed/backend/pkg/mailer"
	"github.com/anonto42/medfeed/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := config.InitDB(cfg)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.CloseDB() // Ensure the connection is closed when main exits
	logg.Info().Msg("connected to MongoDB")

	mongoDB := db.Mongo.Database(cfg.MongoDB)

	// Seed the superadmin account if configured
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	userRepo := repositories.NewMongoUserRepository(mongoDB)
	if err := bootstrap.SeedSuperAdmin(seedCtx, userRepo, cfg.SuperAdminEmail, cfg.SuperAdminPassword, logg); err != nil {
		logg.Fatal().Err(err).Msg("superadmin seed failed")
	}

	// Live session registry, shared by the API and the websocket endpoint
	hub := realtime.NewHub(logg)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Deps{
		DB:        mongoDB,
		Hub:       hub,
		Mailer:    smtpMailer,
		JWTSecret: cfg.JWTSecret,
		Logger:    logg,
	})

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
