package repositories

import (
	"context"
	"errors"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/core/domain"

	"gorm.io/gorm"
)

// GormDeviceRepository handles device database operations
type GormDeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *gorm.DB) *GormDeviceRepository {
	return &GormDeviceRepository{db: db}
}

// GetByDeviceID returns a device by its opaque device key
func (r *GormDeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

// FindOrCreate returns the existing device with refreshed metadata, or
// creates one in status=inactive. A concurrent create for the same key loses
// on the device_id unique index and falls back to reading the winner's row.
func (r *GormDeviceRepository) FindOrCreate(ctx context.Context, deviceID string, info models.DeviceInfo) (*models.Device, error) {
	device, err := r.GetByDeviceID(ctx, deviceID)
	if err == nil {
		device.Info = info
		if err := r.db.WithContext(ctx).Model(device).Updates(models.Device{Info: info}).Error; err != nil {
			return nil, err
		}
		return device, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	device = &models.Device{
		DeviceID: deviceID,
		Info:     info,
		Status:   models.DeviceStatusInactive,
	}
	if err := r.db.WithContext(ctx).Create(device).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByDeviceID(ctx, deviceID)
		}
		return nil, err
	}
	return device, nil
}

// SetStatus updates device status and current facility binding
func (r *GormDeviceRepository) SetStatus(ctx context.Context, device *models.Device, status string, facilityID *uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("id = ?", device.ID).
		Updates(map[string]interface{}{
			"status":              status,
			"current_facility_id": facilityID,
		}).Error
	if err != nil {
		return err
	}
	device.Status = status
	device.CurrentFacilityID = facilityID
	return nil
}
