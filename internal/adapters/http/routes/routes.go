package routes

import (
	"camlock-api/internal/adapters/http/handlers"
	"camlock-api/internal/adapters/persistence/repositories"
	"camlock-api/internal/config"
	"camlock-api/internal/core/services"
	"camlock-api/internal/pkg/scanlock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// Initialize repositories
	qrRepo := repositories.NewQRCodeRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	enrollRepo := repositories.NewEnrollmentRepository(db)

	// Initialize collaborators
	verifier := services.NewQRTokenVerifier(cfg.QRToken.Secret)
	gateway := services.NewMDMService(cfg.MDM.BaseURL, cfg.MDM.APIKey, cfg.MDMTimeout())
	locker := scanlock.New(rdb)
	publisher := services.NewAMQPPublisher(cfg.AMQPURL)

	// Enrollment engine
	enrollmentService := services.NewEnrollmentService(
		verifier,
		qrRepo,
		deviceRepo,
		enrollRepo,
		gateway,
		locker,
		publisher,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService)
	deviceHandler := handlers.NewDeviceHandler(deviceRepo, enrollRepo)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group (public: the mobile app authenticates scans by QR token)
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	enrollments := apiV1.Group("/enrollments")
	enrollments.Post("/scan-entry", enrollmentHandler.ScanEntry)
	enrollments.Post("/scan-exit", enrollmentHandler.ScanExit)

	devices := apiV1.Group("/devices")
	devices.Get("/:deviceId/status", deviceHandler.GetStatus)
}
