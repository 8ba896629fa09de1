package repositories

import (
	"context"
	"time"

	"camlock-api/internal/adapters/persistence/models"
)

// QRCodeRepository resolves scanned QR codes and records scans
type QRCodeRepository interface {
	// GetByQRCodeID returns the QR code with its facility preloaded, or
	// domain.ErrNotFound.
	GetByQRCodeID(ctx context.Context, qrCodeID string) (*models.QRCode, error)
	// RecordScan increments the scan counter and stamps last_scanned_at.
	RecordScan(ctx context.Context, qr *models.QRCode) error
}

// DeviceRepository stores device identity and camera status
type DeviceRepository interface {
	// GetByDeviceID returns the device or domain.ErrNotFound.
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	// FindOrCreate returns the existing device with refreshed metadata, or
	// creates a new one in status=inactive. Safe under concurrent calls for
	// the same key (unique index on device_id).
	FindOrCreate(ctx context.Context, deviceID string, info models.DeviceInfo) (*models.Device, error)
	// SetStatus updates device status and current facility binding.
	SetStatus(ctx context.Context, device *models.Device, status string, facilityID *uint) error
}

// EnrollmentRepository is the enrollment ledger. Only the enrollment engine
// and the expiry sweep transition enrollment status.
type EnrollmentRepository interface {
	// FindActiveByDevice returns the single active enrollment for the device,
	// or (nil, nil) when there is none.
	FindActiveByDevice(ctx context.Context, deviceID uint) (*models.Enrollment, error)
	// Create persists a new active enrollment plus its "enrolled" action.
	// A second active enrollment for the same device fails with
	// domain.ErrDuplicateEntry.
	Create(ctx context.Context, enrollment *models.Enrollment) error
	// Complete transitions an active enrollment to completed: sets
	// unenrolled_at, duration in whole minutes, the exit QR reference, and
	// appends the "unenrolled" action.
	Complete(ctx context.Context, enrollment *models.Enrollment, exitQR *models.QRCode) error
	// FindExpirable returns active enrollments for the facility enrolled at or
	// before the cutoff.
	FindExpirable(ctx context.Context, facilityID uint, cutoff time.Time) ([]models.Enrollment, error)
	// Expire transitions an overstayed active enrollment to expired and
	// records a timeout violation.
	Expire(ctx context.Context, enrollment *models.Enrollment) error
}
