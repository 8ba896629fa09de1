package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"camlock-api/internal/adapters/persistence/models"
)

// MDM errors
var (
	ErrUnsupportedPlatform = errors.New("unsupported device platform")
	ErrMDMRejected         = errors.New("mdm provider rejected the command")
)

// CameraGateway is the abstract capability to lock/unlock a device camera.
// Implementations must return an error on any failure; a scan is never
// committed against a gateway call that did not succeed.
type CameraGateway interface {
	LockCamera(ctx context.Context, deviceID, platform string) error
	UnlockCamera(ctx context.Context, deviceID, platform string) error
}

// MDMService talks to the MDM provider's REST API. With an empty base URL it
// runs in simulation mode: commands are logged and succeed, which is how dev
// environments work without a provider account.
type MDMService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewMDMService creates a new MDM gateway client
func NewMDMService(baseURL, apiKey string, timeout time.Duration) *MDMService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MDMService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// LockCamera disables the camera on the device
func (s *MDMService) LockCamera(ctx context.Context, deviceID, platform string) error {
	return s.sendCameraCommand(ctx, deviceID, platform, true)
}

// UnlockCamera re-enables the camera on the device
func (s *MDMService) UnlockCamera(ctx context.Context, deviceID, platform string) error {
	return s.sendCameraCommand(ctx, deviceID, platform, false)
}

// cameraCommand is the provider payload for a camera policy change
type cameraCommand struct {
	DeviceID string `json:"device_id"`
	Platform string `json:"platform"`
	Policy   string `json:"policy"`
	Disabled bool   `json:"disabled"`
}

func (s *MDMService) sendCameraCommand(ctx context.Context, deviceID, platform string, disabled bool) error {
	policy, err := cameraPolicyFor(platform)
	if err != nil {
		return err
	}

	if s.baseURL == "" {
		log.Printf("🔧 MDM simulation: %s %s=%v (device: %s)", platform, policy, disabled, deviceID)
		return nil
	}

	body, err := json.Marshal(cameraCommand{
		DeviceID: deviceID,
		Platform: platform,
		Policy:   policy,
		Disabled: disabled,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/devices/%s/commands/camera", s.baseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mdm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrMDMRejected, resp.StatusCode, string(detail))
	}
	return nil
}

// cameraPolicyFor maps a platform to its provider policy name. Android uses a
// work-profile restriction, iOS an MDM profile restriction.
func cameraPolicyFor(platform string) (string, error) {
	switch platform {
	case models.PlatformAndroid:
		return "cameraDisabled", nil
	case models.PlatformIOS:
		return "cameraRestricted", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
}
