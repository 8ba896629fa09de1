package handlers

import (
	"errors"
	"log"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/core/domain"
	"camlock-api/internal/core/services"
	"camlock-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// EnrollmentHandler handles the mobile scan endpoints
type EnrollmentHandler struct {
	enrollmentService *services.EnrollmentService
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollmentService *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
	}
}

// DeviceInfoRequest mirrors the deviceInfo object sent by the mobile app
type DeviceInfoRequest struct {
	Platform     string  `json:"platform"`
	Manufacturer *string `json:"manufacturer"`
	Model        *string `json:"model"`
	OSVersion    *string `json:"osVersion"`
	AppVersion   *string `json:"appVersion"`
	DeviceName   *string `json:"deviceName"`
}

// ScanEntryRequest is the entry scan payload
type ScanEntryRequest struct {
	Token      string             `json:"token"`
	DeviceID   string             `json:"deviceId"`
	DeviceInfo *DeviceInfoRequest `json:"deviceInfo"`
}

// ScanExitRequest is the exit scan payload
type ScanExitRequest struct {
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
}

// ScanEntry handles an entry QR scan
// @Summary Scan entry QR code
// @Description Enrolls the device at the facility and locks its camera
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param request body ScanEntryRequest true "Entry scan payload"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /enrollments/scan-entry [post]
func (h *EnrollmentHandler) ScanEntry(c *fiber.Ctx) error {
	var req ScanEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, domain.ReasonInvalidInput, "Invalid request body")
	}
	if req.Token == "" || req.DeviceID == "" || req.DeviceInfo == nil {
		return response.BadRequest(c, domain.ReasonInvalidInput, "token, deviceId and deviceInfo are required")
	}
	if req.DeviceInfo.Platform != models.PlatformAndroid && req.DeviceInfo.Platform != models.PlatformIOS {
		return response.BadRequest(c, domain.ReasonInvalidInput, "deviceInfo.platform must be android or ios")
	}

	result, err := h.enrollmentService.ScanEntry(c.Context(), services.EntryScanInput{
		Token:    req.Token,
		DeviceID: req.DeviceID,
		DeviceInfo: models.DeviceInfo{
			Platform:     req.DeviceInfo.Platform,
			Manufacturer: req.DeviceInfo.Manufacturer,
			Model:        req.DeviceInfo.Model,
			OSVersion:    req.DeviceInfo.OSVersion,
			AppVersion:   req.DeviceInfo.AppVersion,
			DeviceName:   req.DeviceInfo.DeviceName,
		},
	})
	if err != nil {
		return h.scanError(c, err)
	}

	return response.Success(c, "Entry allowed", result)
}

// ScanExit handles an exit QR scan
// @Summary Scan exit QR code
// @Description Completes the enrollment and unlocks the device camera
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param request body ScanExitRequest true "Exit scan payload"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /enrollments/scan-exit [post]
func (h *EnrollmentHandler) ScanExit(c *fiber.Ctx) error {
	var req ScanExitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, domain.ReasonInvalidInput, "Invalid request body")
	}
	if req.Token == "" || req.DeviceID == "" {
		return response.BadRequest(c, domain.ReasonInvalidInput, "token and deviceId are required")
	}

	result, err := h.enrollmentService.ScanExit(c.Context(), services.ExitScanInput{
		Token:    req.Token,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		return h.scanError(c, err)
	}

	return response.Success(c, "Exit allowed", result)
}

// scanError maps engine errors to HTTP status plus a stable reason code
func (h *EnrollmentHandler) scanError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		return response.BadRequest(c, domain.ReasonInvalidToken, "Invalid or expired token")
	case errors.Is(err, services.ErrInvalidQR):
		return response.BadRequest(c, domain.ReasonInvalidQR, "Invalid or expired QR code")
	case errors.Is(err, services.ErrWrongDirection):
		return response.BadRequest(c, domain.ReasonWrongDirection, "This QR code is not valid for this scan direction")
	case errors.Is(err, services.ErrConflictingEnrollment):
		return response.Conflict(c, domain.ReasonConflictingEnrollment, "Device is already enrolled in another facility. Please scan exit there first.")
	case errors.Is(err, services.ErrLockFailed):
		return response.InternalServerError(c, domain.ReasonLockFailed, "Failed to lock camera")
	case errors.Is(err, services.ErrUnlockFailed):
		return response.InternalServerError(c, domain.ReasonUnlockFailed, "Failed to unlock camera")
	default:
		log.Printf("❌ Scan processing error: %v", err)
		return response.InternalServerError(c, domain.ReasonInternalError, "Internal server error")
	}
}
