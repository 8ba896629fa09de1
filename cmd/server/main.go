package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"camlock-api/internal/adapters/http/middleware"
	"camlock-api/internal/adapters/http/routes"
	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/adapters/persistence/repositories"
	"camlock-api/internal/config"
	"camlock-api/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "camlock-api/docs" // Swagger docs
)

// @title CamLock API
// @version 1.0
// @description Facility camera-lock enrollment API: QR scan driven device enrollment with MDM camera control.

// @contact.name API Support
// @contact.email support@camlock.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host api.camlock.io
// @BasePath /api/v1
// @schemes https

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed demo facility + QR codes in dev mode
	if cfg.IsDev() {
		if err := config.SeedDemoData(db, cfg); err != nil {
			log.Printf("⚠️ Warning: Failed to seed demo data: %v", err)
		}
	}

	// Optional redis (per-device scan lease)
	rdb := config.ConnectRedis(cfg)

	// Auto-unenroll sweep
	gateway := services.NewMDMService(cfg.MDM.BaseURL, cfg.MDM.APIKey, cfg.MDMTimeout())
	sweep := services.NewSweepService(
		repositories.NewFacilityRepository(db),
		repositories.NewEnrollmentRepository(db),
		repositories.NewDeviceRepository(db),
		gateway,
	)
	sweep.Start()
	defer sweep.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CamLock API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db, redis and cfg for dependency injection)
	routes.Setup(app, db, rdb, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
