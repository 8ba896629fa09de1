package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"camlock-api/internal/adapters/persistence/models"
	"camlock-api/internal/core/domain"
	"camlock-api/internal/core/services"
	"camlock-api/internal/pkg/qrtoken"
	"camlock-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Minimal in-memory collaborators, enough to drive the engine through the
// HTTP layer.

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*qrtoken.Claims, error) {
	switch token {
	case "valid-entry":
		return &qrtoken.Claims{QRCodeID: "qr-entry", TokenType: qrtoken.TokenType}, nil
	case "valid-exit":
		return &qrtoken.Claims{QRCodeID: "qr-exit", TokenType: qrtoken.TokenType}, nil
	default:
		return nil, qrtoken.ErrTokenInvalid
	}
}

type stubQRRepo struct{ codes map[string]*models.QRCode }

func (r stubQRRepo) GetByQRCodeID(_ context.Context, id string) (*models.QRCode, error) {
	if qr, ok := r.codes[id]; ok {
		return qr, nil
	}
	return nil, domain.ErrNotFound
}
func (r stubQRRepo) RecordScan(_ context.Context, _ *models.QRCode) error { return nil }

type stubDeviceRepo struct{ devices map[string]*models.Device }

func (r stubDeviceRepo) GetByDeviceID(_ context.Context, id string) (*models.Device, error) {
	if d, ok := r.devices[id]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}
func (r stubDeviceRepo) FindOrCreate(_ context.Context, id string, info models.DeviceInfo) (*models.Device, error) {
	if d, ok := r.devices[id]; ok {
		return d, nil
	}
	d := &models.Device{ID: uint(len(r.devices) + 1), DeviceID: id, Info: info, Status: models.DeviceStatusInactive}
	r.devices[id] = d
	return d, nil
}
func (r stubDeviceRepo) SetStatus(_ context.Context, device *models.Device, status string, facilityID *uint) error {
	device.Status = status
	device.CurrentFacilityID = facilityID
	return nil
}

type stubEnrollRepo struct{ active map[uint]*models.Enrollment }

func (r stubEnrollRepo) FindActiveByDevice(_ context.Context, deviceID uint) (*models.Enrollment, error) {
	return r.active[deviceID], nil
}
func (r stubEnrollRepo) Create(_ context.Context, e *models.Enrollment) error {
	if r.active[e.DeviceID] != nil {
		return domain.ErrDuplicateEntry
	}
	e.Status = models.EnrollmentStatusActive
	r.active[e.DeviceID] = e
	return nil
}
func (r stubEnrollRepo) Complete(_ context.Context, e *models.Enrollment, _ *models.QRCode) error {
	e.Status = models.EnrollmentStatusCompleted
	delete(r.active, e.DeviceID)
	return nil
}
func (r stubEnrollRepo) FindExpirable(_ context.Context, _ uint, _ time.Time) ([]models.Enrollment, error) {
	return nil, nil
}
func (r stubEnrollRepo) Expire(_ context.Context, _ *models.Enrollment) error { return nil }

type stubGateway struct{}

func (stubGateway) LockCamera(_ context.Context, _, _ string) error   { return nil }
func (stubGateway) UnlockCamera(_ context.Context, _, _ string) error { return nil }

func newTestApp(enrollRepo stubEnrollRepo) *fiber.App {
	now := time.Now()
	facility := models.Facility{ID: 1, FacilityID: "FAC-A", Name: "Facility A", Status: "active"}
	qrRepo := stubQRRepo{codes: map[string]*models.QRCode{
		"qr-entry": {
			ID: 1, QRCodeID: "qr-entry", FacilityID: 1, Type: models.QRTypeEntry,
			Status: models.QRStatusActive, ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
			Facility: facility,
		},
		"qr-exit": {
			ID: 2, QRCodeID: "qr-exit", FacilityID: 1, Type: models.QRTypeExit,
			Status: models.QRStatusActive, ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
			Facility: facility,
		},
	}}
	deviceRepo := stubDeviceRepo{devices: map[string]*models.Device{}}

	svc := services.NewEnrollmentService(stubVerifier{}, qrRepo, deviceRepo, enrollRepo, stubGateway{}, nil, nil)
	handler := NewEnrollmentHandler(svc)

	app := fiber.New()
	app.Post("/api/v1/enrollments/scan-entry", handler.ScanEntry)
	app.Post("/api/v1/enrollments/scan-exit", handler.ScanExit)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, response.Response) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var envelope response.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, envelope
}

func TestScanEntryEndpoint_Success(t *testing.T) {
	app := newTestApp(stubEnrollRepo{active: map[uint]*models.Enrollment{}})

	resp, envelope := postJSON(t, app, "/api/v1/enrollments/scan-entry", fiber.Map{
		"token":      "valid-entry",
		"deviceId":   "dev-1",
		"deviceInfo": fiber.Map{"platform": "android"},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %+v", envelope)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", envelope.Data)
	}
	if data["action"] != domain.DirectiveLockCamera {
		t.Errorf("expected action=%s, got %v", domain.DirectiveLockCamera, data["action"])
	}
	if data["facilityName"] != "Facility A" {
		t.Errorf("expected facilityName=Facility A, got %v", data["facilityName"])
	}
	if data["enrollmentId"] == "" || data["enrollmentId"] == nil {
		t.Error("expected an enrollmentId")
	}
}

func TestScanEntryEndpoint_Validation(t *testing.T) {
	tests := []struct {
		name string
		body fiber.Map
	}{
		{"missing token", fiber.Map{"deviceId": "dev-1", "deviceInfo": fiber.Map{"platform": "android"}}},
		{"missing deviceInfo", fiber.Map{"token": "valid-entry", "deviceId": "dev-1"}},
		{"bad platform", fiber.Map{"token": "valid-entry", "deviceId": "dev-1", "deviceInfo": fiber.Map{"platform": "windows"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(stubEnrollRepo{active: map[uint]*models.Enrollment{}})
			resp, envelope := postJSON(t, app, "/api/v1/enrollments/scan-entry", tt.body)

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if envelope.Reason != domain.ReasonInvalidInput {
				t.Errorf("expected reason=%s, got %q", domain.ReasonInvalidInput, envelope.Reason)
			}
		})
	}
}

func TestScanEntryEndpoint_InvalidToken(t *testing.T) {
	app := newTestApp(stubEnrollRepo{active: map[uint]*models.Enrollment{}})

	resp, envelope := postJSON(t, app, "/api/v1/enrollments/scan-entry", fiber.Map{
		"token":      "forged",
		"deviceId":   "dev-1",
		"deviceInfo": fiber.Map{"platform": "android"},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Reason != domain.ReasonInvalidToken {
		t.Errorf("expected reason=%s, got %q", domain.ReasonInvalidToken, envelope.Reason)
	}
}

func TestScanEntryEndpoint_Conflict(t *testing.T) {
	// Device 1 already enrolled at another facility
	deviceID := uint(1)
	enrollRepo := stubEnrollRepo{active: map[uint]*models.Enrollment{
		1: {EnrollmentID: "enr-other", DeviceID: 1, ActiveDeviceID: &deviceID, FacilityID: 99, Status: models.EnrollmentStatusActive},
	}}
	app := newTestApp(enrollRepo)

	resp, envelope := postJSON(t, app, "/api/v1/enrollments/scan-entry", fiber.Map{
		"token":      "valid-entry",
		"deviceId":   "dev-1",
		"deviceInfo": fiber.Map{"platform": "android"},
	})

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if envelope.Reason != domain.ReasonConflictingEnrollment {
		t.Errorf("expected reason=%s, got %q", domain.ReasonConflictingEnrollment, envelope.Reason)
	}
}

func TestScanExitEndpoint_UnknownDeviceStillUnlocks(t *testing.T) {
	app := newTestApp(stubEnrollRepo{active: map[uint]*models.Enrollment{}})

	resp, envelope := postJSON(t, app, "/api/v1/enrollments/scan-exit", fiber.Map{
		"token":    "valid-exit",
		"deviceId": "never-seen",
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", envelope.Data)
	}
	if data["action"] != domain.DirectiveUnlockCamera {
		t.Errorf("expected action=%s, got %v", domain.DirectiveUnlockCamera, data["action"])
	}
}
