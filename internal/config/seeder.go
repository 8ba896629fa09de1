package config

import (
	"fmt"
	"log"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/pkg/qrtoken"

	"gorm.io/gorm"
)

const demoFacilityID = "FAC-DEMO-001"

// SeedDemoData creates a demo facility with a signed entry/exit QR pair for
// manual testing. Dev mode only; idempotent.
func SeedDemoData(db *gorm.DB, cfg *Config) error {
	var count int64
	if err := db.Model(&models.Facility{}).Where("facility_id = ?", demoFacilityID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	facility := models.Facility{
		FacilityID: demoFacilityID,
		Name:       "Demo Secure Facility",
		Status:     "active",
		Settings: models.FacilitySettings{
			MaxEnrollmentHours: 24,
			RequireExitScan:    true,
			AutoUnenrollHours:  24,
			NotifyOnEntry:      true,
			NotifyOnExit:       true,
		},
	}
	if err := db.Create(&facility).Error; err != nil {
		return err
	}

	validUntil := time.Now().Add(cfg.QRTokenTTL())

	entryToken, err := seedQRCode(db, cfg, &facility, models.QRTypeEntry, models.QRActionLock, "Main Entrance", validUntil)
	if err != nil {
		return err
	}
	exitToken, err := seedQRCode(db, cfg, &facility, models.QRTypeExit, models.QRActionUnlock, "Main Exit", validUntil)
	if err != nil {
		return err
	}

	log.Printf("✅ Demo facility seeded [%s]", facility.FacilityID)
	log.Printf("   🔐 Entry token: %s", entryToken)
	log.Printf("   🔓 Exit token:  %s", exitToken)
	return nil
}

func seedQRCode(db *gorm.DB, cfg *Config, facility *models.Facility, qrType, action, location string, validUntil time.Time) (string, error) {
	qrCodeID := fmt.Sprintf("%s-%s", facility.FacilityID, qrType)

	token, err := qrtoken.Generate(qrCodeID, cfg.QRToken.Secret, cfg.QRTokenTTL())
	if err != nil {
		return "", err
	}

	qr := models.QRCode{
		QRCodeID:   qrCodeID,
		FacilityID: facility.ID,
		Type:       qrType,
		Action:     action,
		Token:      token,
		Location:   &location,
		Status:     models.QRStatusActive,
		ValidFrom:  time.Now(),
		ValidUntil: validUntil,
	}
	if err := db.Create(&qr).Error; err != nil {
		return "", err
	}
	return token, nil
}
