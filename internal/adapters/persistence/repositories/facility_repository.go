package repositories

import (
	"context"

	"camlock-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// FacilityRepository answers facility policy queries for the expiry sweep
type FacilityRepository interface {
	// ListAutoUnenroll returns active facilities with a positive
	// auto-unenroll window.
	ListAutoUnenroll(ctx context.Context) ([]models.Facility, error)
}

// GormFacilityRepository handles facility database operations
type GormFacilityRepository struct {
	db *gorm.DB
}

// NewFacilityRepository creates a new facility repository
func NewFacilityRepository(db *gorm.DB) *GormFacilityRepository {
	return &GormFacilityRepository{db: db}
}

// ListAutoUnenroll returns active facilities that auto-unenroll overstays
func (r *GormFacilityRepository) ListAutoUnenroll(ctx context.Context) ([]models.Facility, error) {
	var facilities []models.Facility
	err := r.db.WithContext(ctx).
		Where("status = ? AND setting_auto_unenroll_hours > 0", "active").
		Find(&facilities).Error
	return facilities, err
}
