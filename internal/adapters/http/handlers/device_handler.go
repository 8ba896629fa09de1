package handlers

import (
	"errors"
	"time"

	"camlock-api/internal/adapters/persistence/repositories"
	"camlock-api/internal/core/domain"
	"camlock-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DeviceHandler exposes read-only device state so the mobile app can re-sync
// after a reinstall or a missed response
type DeviceHandler struct {
	deviceRepo repositories.DeviceRepository
	enrollRepo repositories.EnrollmentRepository
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(deviceRepo repositories.DeviceRepository, enrollRepo repositories.EnrollmentRepository) *DeviceHandler {
	return &DeviceHandler{
		deviceRepo: deviceRepo,
		enrollRepo: enrollRepo,
	}
}

// DeviceStatusResponse summarises a device and its active enrollment
type DeviceStatusResponse struct {
	DeviceID     string              `json:"deviceId"`
	Platform     string              `json:"platform"`
	Status       string              `json:"status"`
	LastActivity time.Time           `json:"lastActivity"`
	Enrollment   *ActiveEnrollmentDTO `json:"enrollment,omitempty"`
}

// ActiveEnrollmentDTO is the active enrollment summary
type ActiveEnrollmentDTO struct {
	EnrollmentID string    `json:"enrollmentId"`
	FacilityID   uint      `json:"facilityId"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

// GetStatus returns current device + enrollment state
// @Summary Get device status
// @Description Returns the device's camera status and active enrollment, if any
// @Tags Devices
// @Produce json
// @Param deviceId path string true "Device key"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /devices/{deviceId}/status [get]
func (h *DeviceHandler) GetStatus(c *fiber.Ctx) error {
	deviceID := c.Params("deviceId")
	if deviceID == "" {
		return response.BadRequest(c, domain.ReasonInvalidInput, "deviceId is required")
	}

	device, err := h.deviceRepo.GetByDeviceID(c.Context(), deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, domain.ReasonInvalidInput, "Device not registered")
		}
		return response.InternalServerError(c, domain.ReasonInternalError, "Failed to load device")
	}

	result := DeviceStatusResponse{
		DeviceID:     device.DeviceID,
		Platform:     device.Info.Platform,
		Status:       device.Status,
		LastActivity: device.LastActivity,
	}

	enrollment, err := h.enrollRepo.FindActiveByDevice(c.Context(), device.ID)
	if err != nil {
		return response.InternalServerError(c, domain.ReasonInternalError, "Failed to load enrollment")
	}
	if enrollment != nil {
		result.Enrollment = &ActiveEnrollmentDTO{
			EnrollmentID: enrollment.EnrollmentID,
			FacilityID:   enrollment.FacilityID,
			EnrolledAt:   enrollment.EnrolledAt,
		}
	}

	return response.Success(c, "Device status retrieved", result)
}
