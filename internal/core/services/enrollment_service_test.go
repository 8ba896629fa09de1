package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/core/domain"
	"camlock-api/internal/pkg/qrtoken"
)

// ── Test doubles ─────────────────────────────────────────────────────────────

type fakeVerifier struct {
	// token -> qr code id
	tokens map[string]string
}

func (v *fakeVerifier) Verify(token string) (*qrtoken.Claims, error) {
	id, ok := v.tokens[token]
	if !ok {
		return nil, qrtoken.ErrTokenInvalid
	}
	return &qrtoken.Claims{QRCodeID: id, TokenType: qrtoken.TokenType}, nil
}

type fakeQRRepo struct {
	codes map[string]*models.QRCode
	scans map[string]int
}

func (r *fakeQRRepo) GetByQRCodeID(_ context.Context, qrCodeID string) (*models.QRCode, error) {
	qr, ok := r.codes[qrCodeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return qr, nil
}

func (r *fakeQRRepo) RecordScan(_ context.Context, qr *models.QRCode) error {
	r.scans[qr.QRCodeID]++
	qr.ScanCount++
	return nil
}

type fakeDeviceRepo struct {
	devices map[string]*models.Device
	nextID  uint
}

func (r *fakeDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (*models.Device, error) {
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (r *fakeDeviceRepo) FindOrCreate(_ context.Context, deviceID string, info models.DeviceInfo) (*models.Device, error) {
	if d, ok := r.devices[deviceID]; ok {
		d.Info = info
		return d, nil
	}
	r.nextID++
	d := &models.Device{
		ID:       r.nextID,
		DeviceID: deviceID,
		Info:     info,
		Status:   models.DeviceStatusInactive,
	}
	r.devices[deviceID] = d
	return d, nil
}

func (r *fakeDeviceRepo) SetStatus(_ context.Context, device *models.Device, status string, facilityID *uint) error {
	device.Status = status
	device.CurrentFacilityID = facilityID
	return nil
}

type fakeEnrollRepo struct {
	enrollments []*models.Enrollment
	nextID      uint
	failCreate  error
}

func (r *fakeEnrollRepo) FindActiveByDevice(_ context.Context, deviceID uint) (*models.Enrollment, error) {
	for _, e := range r.enrollments {
		if e.DeviceID == deviceID && e.Status == models.EnrollmentStatusActive {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeEnrollRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	if existing, _ := r.FindActiveByDevice(ctx, enrollment.DeviceID); existing != nil {
		return domain.ErrDuplicateEntry
	}
	r.nextID++
	enrollment.ID = r.nextID
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.ActiveDeviceID = &enrollment.DeviceID
	r.enrollments = append(r.enrollments, enrollment)
	return nil
}

func (r *fakeEnrollRepo) Complete(_ context.Context, enrollment *models.Enrollment, exitQR *models.QRCode) error {
	now := time.Now()
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.UnenrolledAt = &now
	enrollment.ExitQRCodeID = &exitQR.ID
	enrollment.DurationMinutes = enrollment.ComputeDuration()
	enrollment.ActiveDeviceID = nil
	return nil
}

func (r *fakeEnrollRepo) FindExpirable(_ context.Context, facilityID uint, cutoff time.Time) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range r.enrollments {
		if e.FacilityID == facilityID && e.Status == models.EnrollmentStatusActive && !e.EnrolledAt.After(cutoff) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEnrollRepo) Expire(_ context.Context, enrollment *models.Enrollment) error {
	for _, e := range r.enrollments {
		if e.ID == enrollment.ID {
			now := time.Now()
			e.Status = models.EnrollmentStatusExpired
			e.UnenrolledAt = &now
			e.ActiveDeviceID = nil
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeEnrollRepo) activeCount(deviceID uint) int {
	n := 0
	for _, e := range r.enrollments {
		if e.DeviceID == deviceID && e.Status == models.EnrollmentStatusActive {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	locks      []string
	unlocks    []string
	failLock   error
	failUnlock error
}

func (g *fakeGateway) LockCamera(_ context.Context, deviceID, platform string) error {
	if g.failLock != nil {
		return g.failLock
	}
	g.locks = append(g.locks, deviceID)
	return nil
}

func (g *fakeGateway) UnlockCamera(_ context.Context, deviceID, platform string) error {
	if g.failUnlock != nil {
		return g.failUnlock
	}
	g.unlocks = append(g.unlocks, deviceID)
	return nil
}

type fakePublisher struct {
	events []EnrollmentEvent
}

func (p *fakePublisher) PublishEnrollmentEvent(_ context.Context, event EnrollmentEvent) {
	p.events = append(p.events, event)
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type engineFixture struct {
	svc        *EnrollmentService
	qrRepo     *fakeQRRepo
	deviceRepo *fakeDeviceRepo
	enrollRepo *fakeEnrollRepo
	gateway    *fakeGateway
	publisher  *fakePublisher
}

// newEngineFixture builds an engine wired to in-memory fakes, with two
// facilities: A (entry token "entry-a", exit token "exit-a") and B.
func newEngineFixture() *engineFixture {
	now := time.Now()
	mkFacility := func(id uint, key, name string) models.Facility {
		return models.Facility{
			ID:         id,
			FacilityID: key,
			Name:       name,
			Status:     "active",
			Settings:   models.FacilitySettings{NotifyOnEntry: true, NotifyOnExit: true},
		}
	}
	mkQR := func(id uint, qrID string, facility models.Facility, qrType string) *models.QRCode {
		return &models.QRCode{
			ID:         id,
			QRCodeID:   qrID,
			FacilityID: facility.ID,
			Type:       qrType,
			Status:     models.QRStatusActive,
			ValidFrom:  now.Add(-time.Hour),
			ValidUntil: now.Add(time.Hour),
			Facility:   facility,
		}
	}

	facA := mkFacility(1, "FAC-A", "Facility A")
	facB := mkFacility(2, "FAC-B", "Facility B")

	qrRepo := &fakeQRRepo{
		codes: map[string]*models.QRCode{
			"qr-entry-a": mkQR(1, "qr-entry-a", facA, models.QRTypeEntry),
			"qr-exit-a":  mkQR(2, "qr-exit-a", facA, models.QRTypeExit),
			"qr-entry-b": mkQR(3, "qr-entry-b", facB, models.QRTypeEntry),
			"qr-old-a": {
				ID: 4, QRCodeID: "qr-old-a", FacilityID: facA.ID,
				Type: models.QRTypeEntry, Status: models.QRStatusActive,
				ValidFrom: now.Add(-2 * time.Hour), ValidUntil: now.Add(-time.Hour),
				Facility: facA,
			},
			"qr-revoked-a": {
				ID: 5, QRCodeID: "qr-revoked-a", FacilityID: facA.ID,
				Type: models.QRTypeEntry, Status: models.QRStatusRevoked,
				ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
				Facility: facA,
			},
		},
		scans: map[string]int{},
	}
	verifier := &fakeVerifier{tokens: map[string]string{
		"entry-a":   "qr-entry-a",
		"exit-a":    "qr-exit-a",
		"entry-b":   "qr-entry-b",
		"old-a":     "qr-old-a",
		"revoked-a": "qr-revoked-a",
		"ghost":     "qr-missing",
	}}

	deviceRepo := &fakeDeviceRepo{devices: map[string]*models.Device{}}
	enrollRepo := &fakeEnrollRepo{}
	gateway := &fakeGateway{}
	publisher := &fakePublisher{}

	svc := NewEnrollmentService(verifier, qrRepo, deviceRepo, enrollRepo, gateway, nil, publisher)
	return &engineFixture{
		svc:        svc,
		qrRepo:     qrRepo,
		deviceRepo: deviceRepo,
		enrollRepo: enrollRepo,
		gateway:    gateway,
		publisher:  publisher,
	}
}

func androidInfo() models.DeviceInfo {
	return models.DeviceInfo{Platform: models.PlatformAndroid}
}

func entryInput(token, deviceID string) EntryScanInput {
	return EntryScanInput{Token: token, DeviceID: deviceID, DeviceInfo: androidInfo()}
}

// ── Entry scans ──────────────────────────────────────────────────────────────

func TestScanEntry_EnrollsAndLocks(t *testing.T) {
	f := newEngineFixture()

	result, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1"))
	if err != nil {
		t.Fatalf("ScanEntry: %v", err)
	}

	if result.Action != domain.DirectiveLockCamera {
		t.Errorf("expected action=%s, got %s", domain.DirectiveLockCamera, result.Action)
	}
	if result.FacilityName != "Facility A" {
		t.Errorf("expected facilityName=Facility A, got %q", result.FacilityName)
	}
	if result.EnrollmentID == "" {
		t.Error("expected an enrollment id")
	}
	if len(f.gateway.locks) != 1 {
		t.Fatalf("expected 1 lock call, got %d", len(f.gateway.locks))
	}

	device := f.deviceRepo.devices["dev-1"]
	if device == nil {
		t.Fatal("device was not created")
	}
	if device.Status != models.DeviceStatusActive {
		t.Errorf("expected device status=active, got %s", device.Status)
	}
	if device.CurrentFacilityID == nil || *device.CurrentFacilityID != 1 {
		t.Errorf("expected device bound to facility 1, got %v", device.CurrentFacilityID)
	}
	if f.enrollRepo.activeCount(device.ID) != 1 {
		t.Errorf("expected exactly 1 active enrollment, got %d", f.enrollRepo.activeCount(device.ID))
	}
	if f.qrRepo.scans["qr-entry-a"] != 1 {
		t.Errorf("expected 1 recorded scan, got %d", f.qrRepo.scans["qr-entry-a"])
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Event != EventEnrollmentOpened {
		t.Errorf("expected one enrollment_opened event, got %+v", f.publisher.events)
	}
}

func TestScanEntry_SameFacilityIsIdempotent(t *testing.T) {
	f := newEngineFixture()

	first, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1"))
	if err != nil {
		t.Fatalf("first ScanEntry: %v", err)
	}
	second, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1"))
	if err != nil {
		t.Fatalf("second ScanEntry: %v", err)
	}

	if second.EnrollmentID != first.EnrollmentID {
		t.Errorf("expected the same enrollment id, got %s then %s", first.EnrollmentID, second.EnrollmentID)
	}
	if second.Action != domain.DirectiveLockCamera {
		t.Errorf("expected lock directive on re-scan, got %s", second.Action)
	}
	device := f.deviceRepo.devices["dev-1"]
	if got := f.enrollRepo.activeCount(device.ID); got != 1 {
		t.Errorf("expected 1 active enrollment after double scan, got %d", got)
	}
	// The lock is re-asserted on the idempotent path
	if len(f.gateway.locks) != 2 {
		t.Errorf("expected 2 lock calls, got %d", len(f.gateway.locks))
	}
}

func TestScanEntry_ConflictingFacilityRejected(t *testing.T) {
	f := newEngineFixture()

	if _, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1")); err != nil {
		t.Fatalf("ScanEntry at A: %v", err)
	}
	locksBefore := len(f.gateway.locks)

	_, err := f.svc.ScanEntry(context.Background(), entryInput("entry-b", "dev-1"))
	if !errors.Is(err, ErrConflictingEnrollment) {
		t.Fatalf("expected ErrConflictingEnrollment, got %v", err)
	}

	device := f.deviceRepo.devices["dev-1"]
	if got := f.enrollRepo.activeCount(device.ID); got != 1 {
		t.Errorf("expected the enrollment at A to be untouched, active count=%d", got)
	}
	if device.CurrentFacilityID == nil || *device.CurrentFacilityID != 1 {
		t.Errorf("expected device to stay bound to facility 1, got %v", device.CurrentFacilityID)
	}
	if len(f.gateway.locks) != locksBefore {
		t.Errorf("conflict must not trigger gateway calls, got %d extra", len(f.gateway.locks)-locksBefore)
	}
}

func TestScanEntry_TokenAndQRFailures(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"unknown token", "garbage", ErrInvalidToken},
		{"token for missing qr", "ghost", ErrInvalidQR},
		{"expired validity window", "old-a", ErrInvalidQR},
		{"revoked qr", "revoked-a", ErrInvalidQR},
		{"exit qr on entry scan", "exit-a", ErrWrongDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture()
			_, err := f.svc.ScanEntry(context.Background(), entryInput(tt.token, "dev-1"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(f.gateway.locks) != 0 {
				t.Error("rejected scan must not lock the camera")
			}
			if len(f.enrollRepo.enrollments) != 0 {
				t.Error("rejected scan must not create an enrollment")
			}
		})
	}
}

func TestScanEntry_LockFailureLeavesNoState(t *testing.T) {
	f := newEngineFixture()
	f.gateway.failLock = fmt.Errorf("provider timeout")

	_, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1"))
	if !errors.Is(err, ErrLockFailed) {
		t.Fatalf("expected ErrLockFailed, got %v", err)
	}

	if len(f.enrollRepo.enrollments) != 0 {
		t.Error("no enrollment may exist after a failed lock")
	}
	device := f.deviceRepo.devices["dev-1"]
	if device.Status != models.DeviceStatusInactive {
		t.Errorf("device status must stay inactive, got %s", device.Status)
	}
	if device.CurrentFacilityID != nil {
		t.Error("device must not be bound to a facility after a failed lock")
	}
	if f.qrRepo.scans["qr-entry-a"] != 0 {
		t.Error("failed entry must not record a scan")
	}
}

func TestScanEntry_StorageConflictMapsToConflict(t *testing.T) {
	f := newEngineFixture()
	// Simulate losing the read-then-create race: the read sees no active
	// enrollment but the unique index rejects the insert.
	f.enrollRepo.failCreate = domain.ErrDuplicateEntry

	_, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1"))
	if !errors.Is(err, ErrConflictingEnrollment) {
		t.Fatalf("expected ErrConflictingEnrollment, got %v", err)
	}
}

// ── Exit scans ───────────────────────────────────────────────────────────────

func TestScanExit_FullRoundTrip(t *testing.T) {
	f := newEngineFixture()

	t0 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return t0 }

	entry, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1"))
	if err != nil {
		t.Fatalf("ScanEntry: %v", err)
	}

	result, err := f.svc.ScanExit(context.Background(), ExitScanInput{Token: "exit-a", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("ScanExit: %v", err)
	}
	if result.Action != domain.DirectiveUnlockCamera {
		t.Errorf("expected unlock directive, got %s", result.Action)
	}
	if len(f.gateway.unlocks) != 1 {
		t.Fatalf("expected 1 unlock call, got %d", len(f.gateway.unlocks))
	}

	enrollment := f.enrollRepo.enrollments[0]
	if enrollment.EnrollmentID != entry.EnrollmentID {
		t.Fatalf("completed enrollment %s does not match entry %s", enrollment.EnrollmentID, entry.EnrollmentID)
	}
	if enrollment.Status != models.EnrollmentStatusCompleted {
		t.Errorf("expected status=completed, got %s", enrollment.Status)
	}
	if enrollment.UnenrolledAt == nil {
		t.Fatal("expected unenrolled_at to be set")
	}
	wantMinutes := int64(enrollment.UnenrolledAt.Sub(t0) / time.Minute)
	if enrollment.DurationMinutes != wantMinutes {
		t.Errorf("expected duration=%d minutes, got %d", wantMinutes, enrollment.DurationMinutes)
	}

	device := f.deviceRepo.devices["dev-1"]
	if device.Status != models.DeviceStatusInactive {
		t.Errorf("expected device status=inactive, got %s", device.Status)
	}
	if device.CurrentFacilityID != nil {
		t.Error("expected current facility to be cleared")
	}
	if f.enrollRepo.activeCount(device.ID) != 0 {
		t.Error("no active enrollment may remain after exit")
	}
	if len(f.publisher.events) != 2 || f.publisher.events[1].Event != EventEnrollmentClosed {
		t.Errorf("expected enrollment_closed event, got %+v", f.publisher.events)
	}
}

func TestScanExit_DurationIsFlooredToMinutes(t *testing.T) {
	t0 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(95*time.Minute + 59*time.Second)
	enrollment := &models.Enrollment{EnrolledAt: t0, UnenrolledAt: &t1}

	if got := enrollment.ComputeDuration(); got != 95 {
		t.Errorf("expected 95 whole minutes, got %d", got)
	}
}

func TestScanExit_UnknownDeviceIsSafetyNet(t *testing.T) {
	f := newEngineFixture()

	result, err := f.svc.ScanExit(context.Background(), ExitScanInput{Token: "exit-a", DeviceID: "never-seen"})
	if err != nil {
		t.Fatalf("ScanExit: %v", err)
	}
	if result.Action != domain.DirectiveUnlockCamera {
		t.Errorf("expected unlock directive, got %s", result.Action)
	}
	if len(f.deviceRepo.devices) != 0 {
		t.Error("unknown device exit must not create a device record")
	}
	if len(f.enrollRepo.enrollments) != 0 {
		t.Error("unknown device exit must not touch the ledger")
	}
	if f.qrRepo.scans["qr-exit-a"] != 0 {
		t.Error("unknown device exit must not record a scan")
	}
}

func TestScanExit_AlreadyExitedForcesUnlock(t *testing.T) {
	f := newEngineFixture()

	if _, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1")); err != nil {
		t.Fatalf("ScanEntry: %v", err)
	}
	if _, err := f.svc.ScanExit(context.Background(), ExitScanInput{Token: "exit-a", DeviceID: "dev-1"}); err != nil {
		t.Fatalf("first ScanExit: %v", err)
	}
	ledgerSize := len(f.enrollRepo.enrollments)

	result, err := f.svc.ScanExit(context.Background(), ExitScanInput{Token: "exit-a", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("second ScanExit: %v", err)
	}
	if result.Action != domain.DirectiveUnlockCamera {
		t.Errorf("expected unlock directive, got %s", result.Action)
	}
	// The unlock is forced even without an active enrollment
	if len(f.gateway.unlocks) != 2 {
		t.Errorf("expected 2 unlock calls, got %d", len(f.gateway.unlocks))
	}
	if len(f.enrollRepo.enrollments) != ledgerSize {
		t.Error("idempotent exit must leave the ledger unchanged")
	}
}

func TestScanExit_UnlockFailureLeavesEnrollmentActive(t *testing.T) {
	f := newEngineFixture()

	if _, err := f.svc.ScanEntry(context.Background(), entryInput("entry-a", "dev-1")); err != nil {
		t.Fatalf("ScanEntry: %v", err)
	}
	f.gateway.failUnlock = fmt.Errorf("provider timeout")

	_, err := f.svc.ScanExit(context.Background(), ExitScanInput{Token: "exit-a", DeviceID: "dev-1"})
	if !errors.Is(err, ErrUnlockFailed) {
		t.Fatalf("expected ErrUnlockFailed, got %v", err)
	}

	device := f.deviceRepo.devices["dev-1"]
	if f.enrollRepo.activeCount(device.ID) != 1 {
		t.Error("enrollment must stay active after a failed unlock")
	}
	if device.Status != models.DeviceStatusActive {
		t.Errorf("device must stay active, got %s", device.Status)
	}
	if device.CurrentFacilityID == nil {
		t.Error("device must stay bound to its facility")
	}
}

func TestScanExit_EntryQROnExitScanRejected(t *testing.T) {
	f := newEngineFixture()

	_, err := f.svc.ScanExit(context.Background(), ExitScanInput{Token: "entry-a", DeviceID: "dev-1"})
	if !errors.Is(err, ErrWrongDirection) {
		t.Fatalf("expected ErrWrongDirection, got %v", err)
	}
}
