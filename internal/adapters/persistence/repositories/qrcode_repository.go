package repositories

import (
	"context"
	"errors"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/core/domain"

	"gorm.io/gorm"
)

// GormQRCodeRepository handles QR code database operations
type GormQRCodeRepository struct {
	db *gorm.DB
}

// NewQRCodeRepository creates a new QR code repository
func NewQRCodeRepository(db *gorm.DB) *GormQRCodeRepository {
	return &GormQRCodeRepository{db: db}
}

// GetByQRCodeID returns a QR code by its public ID with the facility preloaded
func (r *GormQRCodeRepository) GetByQRCodeID(ctx context.Context, qrCodeID string) (*models.QRCode, error) {
	var qr models.QRCode
	err := r.db.WithContext(ctx).
		Preload("Facility").
		Where("qr_code_id = ?", qrCodeID).
		First(&qr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &qr, nil
}

// RecordScan increments the scan counter and stamps last_scanned_at
func (r *GormQRCodeRepository) RecordScan(ctx context.Context, qr *models.QRCode) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("id = ?", qr.ID).
		Updates(map[string]interface{}{
			"scan_count":      gorm.Expr("scan_count + 1"),
			"last_scanned_at": now,
		}).Error
	if err != nil {
		return err
	}
	qr.ScanCount++
	qr.LastScannedAt = &now
	return nil
}
