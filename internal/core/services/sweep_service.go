package services

import (
	"context"
	"log"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// SweepService expires enrollments that overstayed their facility's
// auto-unenroll window. It runs outside the scan state machine on a cron
// schedule and follows the same ordering rule as the engine: the camera is
// unlocked first, and a gateway failure leaves the enrollment active for the
// next pass.
type SweepService struct {
	facilityRepo repositories.FacilityRepository
	enrollRepo   repositories.EnrollmentRepository
	deviceRepo   repositories.DeviceRepository
	gateway      CameraGateway
	cron         *cron.Cron
	now          func() time.Time
}

// NewSweepService creates the auto-unenroll sweep
func NewSweepService(
	facilityRepo repositories.FacilityRepository,
	enrollRepo repositories.EnrollmentRepository,
	deviceRepo repositories.DeviceRepository,
	gateway CameraGateway,
) *SweepService {
	return &SweepService{
		facilityRepo: facilityRepo,
		enrollRepo:   enrollRepo,
		deviceRepo:   deviceRepo,
		gateway:      gateway,
		now:          time.Now,
	}
}

// Start schedules the sweep every 10 minutes
func (s *SweepService) Start() {
	s.cron = cron.New()
	s.cron.AddFunc("@every 10m", func() {
		s.RunOnce(context.Background())
	})
	s.cron.Start()
	log.Println("🚀 Auto-unenroll sweep started (every 10m)")
}

// Stop halts the schedule, waiting for a running sweep to finish
func (s *SweepService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Println("🛑 Auto-unenroll sweep stopped")
}

// RunOnce performs a single sweep across all facilities
func (s *SweepService) RunOnce(ctx context.Context) {
	facilities, err := s.facilityRepo.ListAutoUnenroll(ctx)
	if err != nil {
		log.Printf("❌ Sweep: facility query error: %v", err)
		return
	}

	expired := 0
	for _, facility := range facilities {
		cutoff := s.now().Add(-time.Duration(facility.Settings.AutoUnenrollHours) * time.Hour)
		enrollments, err := s.enrollRepo.FindExpirable(ctx, facility.ID, cutoff)
		if err != nil {
			log.Printf("❌ Sweep: enrollment query error for facility %s: %v", facility.FacilityID, err)
			continue
		}

		for i := range enrollments {
			if s.expireOne(ctx, &enrollments[i]) {
				expired++
			}
		}
	}

	if expired > 0 {
		log.Printf("🗑️ Sweep expired %d overstayed enrollments", expired)
	}
}

// expireOne unlocks the camera and, only on success, marks the enrollment
// expired and resets the device
func (s *SweepService) expireOne(ctx context.Context, enrollment *models.Enrollment) bool {
	device := enrollment.Device
	if err := s.gateway.UnlockCamera(ctx, device.DeviceID, device.Info.Platform); err != nil {
		log.Printf("⚠️ Sweep: unlock failed for device %s, keeping enrollment %s active: %v",
			device.DeviceID, enrollment.EnrollmentID, err)
		return false
	}

	if err := s.enrollRepo.Expire(ctx, enrollment); err != nil {
		log.Printf("❌ Sweep: expire failed for enrollment %s: %v", enrollment.EnrollmentID, err)
		return false
	}
	if err := s.deviceRepo.SetStatus(ctx, &device, models.DeviceStatusInactive, nil); err != nil {
		log.Printf("❌ Sweep: device reset failed for %s: %v", device.DeviceID, err)
	}
	return true
}
