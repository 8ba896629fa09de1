package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/adapters/persistence/repositories"
	"camlock-api/internal/core/domain"
	"camlock-api/internal/pkg/qrtoken"
	"camlock-api/internal/pkg/scanlock"

	"github.com/google/uuid"
)

// Enrollment errors
var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrInvalidQR             = errors.New("invalid or expired QR code")
	ErrWrongDirection        = errors.New("QR code direction does not match the scan")
	ErrConflictingEnrollment = errors.New("device is already enrolled in another facility")
	ErrLockFailed            = errors.New("failed to lock camera")
	ErrUnlockFailed          = errors.New("failed to unlock camera")
)

// TokenVerifier decodes a scanned QR bearer token into claims
type TokenVerifier interface {
	Verify(token string) (*qrtoken.Claims, error)
}

// QRTokenVerifier is the production verifier bound to the configured secret
type QRTokenVerifier struct {
	secret string
}

// NewQRTokenVerifier creates a verifier for the given signing secret
func NewQRTokenVerifier(secret string) *QRTokenVerifier {
	return &QRTokenVerifier{secret: secret}
}

// Verify validates the token signature and expiry
func (v *QRTokenVerifier) Verify(token string) (*qrtoken.Claims, error) {
	return qrtoken.Verify(token, v.secret)
}

// EntryScanInput is the payload of an entry scan
type EntryScanInput struct {
	Token      string
	DeviceID   string
	DeviceInfo models.DeviceInfo
}

// EntryScanResult is returned on a successful entry scan
type EntryScanResult struct {
	EnrollmentID string `json:"enrollmentId"`
	FacilityName string `json:"facilityName"`
	Action       string `json:"action"`
}

// ExitScanInput is the payload of an exit scan
type ExitScanInput struct {
	Token    string
	DeviceID string
}

// ExitScanResult is returned on a successful exit scan
type ExitScanResult struct {
	Action string `json:"action"`
}

// EnrollmentService is the scan-processing state machine. It orders the
// camera side effect strictly before ledger/registry mutation, so a gateway
// failure leaves prior state untouched and the persisted state never
// disagrees with the physical camera state.
type EnrollmentService struct {
	verifier   TokenVerifier
	qrRepo     repositories.QRCodeRepository
	deviceRepo repositories.DeviceRepository
	enrollRepo repositories.EnrollmentRepository
	gateway    CameraGateway
	locker     *scanlock.Locker
	publisher  EventPublisher
	now        func() time.Time
}

// NewEnrollmentService creates the enrollment engine. locker and publisher
// may be nil (single-instance deployments, notifications disabled).
func NewEnrollmentService(
	verifier TokenVerifier,
	qrRepo repositories.QRCodeRepository,
	deviceRepo repositories.DeviceRepository,
	enrollRepo repositories.EnrollmentRepository,
	gateway CameraGateway,
	locker *scanlock.Locker,
	publisher EventPublisher,
) *EnrollmentService {
	return &EnrollmentService{
		verifier:   verifier,
		qrRepo:     qrRepo,
		deviceRepo: deviceRepo,
		enrollRepo: enrollRepo,
		gateway:    gateway,
		locker:     locker,
		publisher:  publisher,
		now:        time.Now,
	}
}

// resolveQR verifies the token and loads a valid QR code of the wanted type
func (s *EnrollmentService) resolveQR(ctx context.Context, token, wantType string) (*models.QRCode, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	qr, err := s.qrRepo.GetByQRCodeID(ctx, claims.QRCodeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidQR
		}
		return nil, err
	}
	if !qr.IsValid(s.now()) {
		return nil, ErrInvalidQR
	}
	if qr.Type != wantType {
		return nil, ErrWrongDirection
	}
	return qr, nil
}

// ScanEntry processes an entry scan: lock the camera, then enroll.
//
// Idempotence: a device already enrolled at the scanned facility gets its
// lock re-asserted and the existing enrollment back, with no new record.
// Conflict: a device enrolled elsewhere is rejected without side effects.
func (s *EnrollmentService) ScanEntry(ctx context.Context, input EntryScanInput) (*EntryScanResult, error) {
	qr, err := s.resolveQR(ctx, input.Token, models.QRTypeEntry)
	if err != nil {
		return nil, err
	}

	release := s.locker.Acquire(ctx, input.DeviceID)
	defer release()

	device, err := s.deviceRepo.FindOrCreate(ctx, input.DeviceID, input.DeviceInfo)
	if err != nil {
		return nil, err
	}

	existing, err := s.enrollRepo.FindActiveByDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.FacilityID != qr.FacilityID {
			return nil, ErrConflictingEnrollment
		}
		// Same facility: re-assert the lock in case the previous command was
		// lost on the device, and hand back the existing enrollment.
		if err := s.gateway.LockCamera(ctx, device.DeviceID, device.Info.Platform); err != nil {
			log.Printf("⚠️ Re-lock failed for device %s: %v", device.DeviceID, err)
		}
		return &EntryScanResult{
			EnrollmentID: existing.EnrollmentID,
			FacilityName: qr.Facility.Name,
			Action:       domain.DirectiveLockCamera,
		}, nil
	}

	// Camera first. Nothing is persisted against a lock that did not happen.
	if err := s.gateway.LockCamera(ctx, device.DeviceID, device.Info.Platform); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockFailed, err)
	}

	enrollment := &models.Enrollment{
		EnrollmentID:  uuid.NewString(),
		DeviceID:      device.ID,
		FacilityID:    qr.FacilityID,
		EntryQRCodeID: &qr.ID,
		EnrolledAt:    s.now(),
	}
	if err := s.enrollRepo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			// Lost a same-device race after our read. Treat like the
			// cross-facility conflict: the caller re-scans and takes the
			// idempotent path.
			return nil, ErrConflictingEnrollment
		}
		return nil, err
	}

	facilityID := qr.FacilityID
	if err := s.deviceRepo.SetStatus(ctx, device, models.DeviceStatusActive, &facilityID); err != nil {
		return nil, err
	}
	if err := s.qrRepo.RecordScan(ctx, qr); err != nil {
		log.Printf("⚠️ Scan count update failed for QR %s: %v", qr.QRCodeID, err)
	}

	if qr.Facility.Settings.NotifyOnEntry {
		s.publish(ctx, EventEnrollmentOpened, enrollment.EnrollmentID, device, qr)
	}

	return &EntryScanResult{
		EnrollmentID: enrollment.EnrollmentID,
		FacilityName: qr.Facility.Name,
		Action:       domain.DirectiveLockCamera,
	}, nil
}

// ScanExit processes an exit scan: unlock the camera, then close the ledger.
//
// Safety nets: an unknown device, or a device with no active enrollment, is
// answered with an unlock directive and no persistence. A scanner is never
// left presumed-locked because we have no record of them.
func (s *EnrollmentService) ScanExit(ctx context.Context, input ExitScanInput) (*ExitScanResult, error) {
	qr, err := s.resolveQR(ctx, input.Token, models.QRTypeExit)
	if err != nil {
		return nil, err
	}

	release := s.locker.Acquire(ctx, input.DeviceID)
	defer release()

	device, err := s.deviceRepo.GetByDeviceID(ctx, input.DeviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &ExitScanResult{Action: domain.DirectiveUnlockCamera}, nil
		}
		return nil, err
	}

	enrollment, err := s.enrollRepo.FindActiveByDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		// Already checked out. Force an unlock anyway: the previous unlock
		// command may never have reached the device.
		if err := s.gateway.UnlockCamera(ctx, device.DeviceID, device.Info.Platform); err != nil {
			log.Printf("⚠️ Forced unlock failed for device %s: %v", device.DeviceID, err)
		}
		return &ExitScanResult{Action: domain.DirectiveUnlockCamera}, nil
	}

	if err := s.gateway.UnlockCamera(ctx, device.DeviceID, device.Info.Platform); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnlockFailed, err)
	}

	if err := s.enrollRepo.Complete(ctx, enrollment, qr); err != nil {
		return nil, err
	}
	if err := s.deviceRepo.SetStatus(ctx, device, models.DeviceStatusInactive, nil); err != nil {
		return nil, err
	}
	if err := s.qrRepo.RecordScan(ctx, qr); err != nil {
		log.Printf("⚠️ Scan count update failed for QR %s: %v", qr.QRCodeID, err)
	}

	if qr.Facility.Settings.NotifyOnExit {
		s.publish(ctx, EventEnrollmentClosed, enrollment.EnrollmentID, device, qr)
	}

	return &ExitScanResult{Action: domain.DirectiveUnlockCamera}, nil
}

func (s *EnrollmentService) publish(ctx context.Context, event, enrollmentID string, device *models.Device, qr *models.QRCode) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishEnrollmentEvent(ctx, EnrollmentEvent{
		Event:        event,
		EnrollmentID: enrollmentID,
		DeviceID:     device.DeviceID,
		Platform:     device.Info.Platform,
		FacilityID:   qr.Facility.FacilityID,
		FacilityName: qr.Facility.Name,
		OccurredAt:   s.now().UTC().Format(time.RFC3339),
	})
}
