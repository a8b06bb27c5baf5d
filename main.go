package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecochain/config"
	"ecochain/database"
	"ecochain/logger"
	"ecochain/metrics"
	"ecochain/routes"
	"ecochain/services/events"
	"ecochain/services/identity"
	"ecochain/services/lifecycle"
	"ecochain/services/profile"
	"ecochain/services/reward"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, envErr := config.Load()
	if err := logger.Setup(cfg.LogDir); err != nil {
		logger.Error("Failed to open the log file, logging to stdout only", err)
	}
	defer logger.Close()
	if envErr != nil {
		logger.Warning("No .env file loaded: " + envErr.Error())
	}
	if !cfg.IsProduction() {
		logger.SetLevel(log.LevelDebug)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			logger.Fatal("JWT_SECRET must be set in production", errors.New("missing JWT_SECRET"))
		}
		cfg.JWTSecret = randomSecret()
		logger.Warning("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	metrics.Register()

	backend, err := database.Open(cfg)
	if err != nil {
		logger.Error("Failed to open the "+cfg.StoreDriver+" store", err)
		return
	}

	asyncLogger := logger.NewAsyncLogger(backend, 500)
	asyncLogger.OnDrop = metrics.DroppedRequestLogs.Inc
	go asyncLogger.ProcessLog()

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ, lifecycle events are disabled", err)
		} else {
			publisher = amqpPublisher
			logger.Success("Publishing lifecycle events to exchange " + events.Exchange)
		}
	}

	identityService, err := identity.NewService(backend, identity.Options{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
	})
	if err != nil {
		logger.Error("Failed to create the identity service", err)
		return
	}
	profileService := profile.NewService(backend)
	manager := lifecycle.New(backend, reward.NewService(backend), publisher, time.Now)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		BodyLimit:    1 * 1024 * 1024, // 1MB body limit
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Identity:     identityService,
		Profiles:     profileService,
		Lifecycle:    manager,
		Store:        backend,
		AsyncLogger:  asyncLogger,
		SecureCookie: cfg.IsProduction(),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logger.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Server shutdown failed", err)
		}
	}()

	logger.Success("Server is running on " + cfg.ListenAddr() + " using the " + cfg.StoreDriver + " store")
	if err := app.Listen(cfg.ListenAddr()); err != nil {
		logger.Error("Server stopped", err)
	}

	asyncLogger.Close()
	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close the event publisher", err)
	}
	if err := backend.Close(); err != nil {
		logger.Error("Failed to close the store", err)
	}
	logger.Success("Shutdown complete")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Fatal("Failed to generate a JWT secret", err)
	}
	return hex.EncodeToString(b)
}
