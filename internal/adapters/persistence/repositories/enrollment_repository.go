package repositories

import (
	"context"
	"errors"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/core/domain"

	"gorm.io/gorm"
)

// GormEnrollmentRepository is the enrollment ledger backed by MySQL
type GormEnrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *gorm.DB) *GormEnrollmentRepository {
	return &GormEnrollmentRepository{db: db}
}

// FindActiveByDevice returns the active enrollment for a device, or (nil, nil).
// The unique index on active_device_id guarantees there is at most one.
func (r *GormEnrollmentRepository) FindActiveByDevice(ctx context.Context, deviceID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND status = ?", deviceID, models.EnrollmentStatusActive).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

// Create persists a new active enrollment together with its "enrolled" action
// in one transaction. ActiveDeviceID is set so a concurrent second enrollment
// for the same device fails with domain.ErrDuplicateEntry.
func (r *GormEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.ActiveDeviceID = &enrollment.DeviceID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(enrollment).Error; err != nil {
			return err
		}

		action := models.EnrollmentAction{
			EnrollmentID: enrollment.ID,
			Action:       models.ActionEnrolled,
			Timestamp:    enrollment.EnrolledAt,
		}
		if enrollment.EntryQRCodeID != nil {
			action.QRCodeScanned = qrCodeRef(tx, *enrollment.EntryQRCodeID)
		}
		if err := tx.Create(&action).Error; err != nil {
			return err
		}

		return tx.Model(&models.Facility{}).
			Where("id = ?", enrollment.FacilityID).
			Updates(map[string]interface{}{
				"total_enrollments":  gorm.Expr("total_enrollments + 1"),
				"active_enrollments": gorm.Expr("active_enrollments + 1"),
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateEntry
		}
		return err
	}
	return nil
}

// Complete transitions an active enrollment to completed
func (r *GormEnrollmentRepository) Complete(ctx context.Context, enrollment *models.Enrollment, exitQR *models.QRCode) error {
	now := time.Now()
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.UnenrolledAt = &now
	enrollment.ExitQRCodeID = &exitQR.ID
	enrollment.DurationMinutes = enrollment.ComputeDuration()
	enrollment.ActiveDeviceID = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Enrollment{}).
			Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentStatusActive).
			Updates(map[string]interface{}{
				"status":           models.EnrollmentStatusCompleted,
				"unenrolled_at":    now,
				"exit_qr_code_id":  exitQR.ID,
				"duration_minutes": enrollment.DurationMinutes,
				"active_device_id": nil,
			}).Error
		if err != nil {
			return err
		}

		action := models.EnrollmentAction{
			EnrollmentID:  enrollment.ID,
			Action:        models.ActionUnenrolled,
			QRCodeScanned: &exitQR.QRCodeID,
			Timestamp:     now,
		}
		if err := tx.Create(&action).Error; err != nil {
			return err
		}

		return tx.Model(&models.Facility{}).
			Where("id = ? AND active_enrollments > 0", enrollment.FacilityID).
			Update("active_enrollments", gorm.Expr("active_enrollments - 1")).Error
	})
}

// FindExpirable returns active enrollments for a facility enrolled at or
// before the cutoff, oldest first
func (r *GormEnrollmentRepository) FindExpirable(ctx context.Context, facilityID uint, cutoff time.Time) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Device").
		Where("facility_id = ? AND status = ? AND enrolled_at <= ?",
			facilityID, models.EnrollmentStatusActive, cutoff).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

// Expire transitions an overstayed active enrollment to expired, appending an
// "expired" action and a timeout violation
func (r *GormEnrollmentRepository) Expire(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now()
	enrollment.Status = models.EnrollmentStatusExpired
	enrollment.UnenrolledAt = &now
	enrollment.DurationMinutes = enrollment.ComputeDuration()
	enrollment.ActiveDeviceID = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Enrollment{}).
			Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentStatusActive).
			Updates(map[string]interface{}{
				"status":           models.EnrollmentStatusExpired,
				"unenrolled_at":    now,
				"duration_minutes": enrollment.DurationMinutes,
				"active_device_id": nil,
			}).Error
		if err != nil {
			return err
		}

		action := models.EnrollmentAction{
			EnrollmentID: enrollment.ID,
			Action:       models.ActionExpired,
			Timestamp:    now,
		}
		if err := tx.Create(&action).Error; err != nil {
			return err
		}

		violation := models.EnrollmentViolation{
			EnrollmentID: enrollment.ID,
			Type:         models.ViolationTimeout,
			Description:  "enrollment exceeded facility auto-unenroll window",
			Severity:     models.SeverityMedium,
			Timestamp:    now,
		}
		if err := tx.Create(&violation).Error; err != nil {
			return err
		}

		return tx.Model(&models.Facility{}).
			Where("id = ? AND active_enrollments > 0", enrollment.FacilityID).
			Update("active_enrollments", gorm.Expr("active_enrollments - 1")).Error
	})
}

// qrCodeRef resolves the public qr_code_id for an internal QR row ID so the
// action log stays readable without joins
func qrCodeRef(tx *gorm.DB, id uint) *string {
	var qr models.QRCode
	if err := tx.Select("qr_code_id").First(&qr, id).Error; err != nil {
		return nil
	}
	return &qr.QRCodeID
}
