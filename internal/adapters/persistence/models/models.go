package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Facility & QR Code Tables
// ============================================================

// Facility represents facilities table
type Facility struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	FacilityID  string         `gorm:"uniqueIndex;size:50;not null" json:"facility_id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Address     *string        `gorm:"size:255" json:"address"`
	City        *string        `gorm:"size:100" json:"city"`
	Country     *string        `gorm:"size:100" json:"country"`
	Description *string        `gorm:"size:255" json:"description"`
	Status      string         `gorm:"size:15;default:'active';index" json:"status"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Settings FacilitySettings `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`

	TotalEnrollments  int64 `gorm:"default:0" json:"total_enrollments"`
	ActiveEnrollments int64 `gorm:"default:0" json:"active_enrollments"`
}

func (Facility) TableName() string {
	return "facilities"
}

// FacilitySettings holds per-facility policy knobs
type FacilitySettings struct {
	AllowMultipleDevices bool `gorm:"default:false" json:"allow_multiple_devices"`
	MaxEnrollmentHours   int  `gorm:"default:24" json:"max_enrollment_hours"`
	RequireExitScan      bool `gorm:"default:true" json:"require_exit_scan"`
	AutoUnenrollHours    int  `gorm:"default:24" json:"auto_unenroll_hours"`
	NotifyOnEntry        bool `gorm:"default:true" json:"notify_on_entry"`
	NotifyOnExit         bool `gorm:"default:true" json:"notify_on_exit"`
}

// QR code types
const (
	QRTypeEntry     = "entry"
	QRTypeExit      = "exit"
	QRTypeEmergency = "emergency"
)

// QR code actions
const (
	QRActionLock            = "lock"
	QRActionUnlock          = "unlock"
	QRActionEmergencyUnlock = "emergency_unlock"
)

// QR code statuses
const (
	QRStatusActive   = "active"
	QRStatusInactive = "inactive"
	QRStatusExpired  = "expired"
	QRStatusRevoked  = "revoked"
)

// QRCode represents qr_codes table
type QRCode struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	QRCodeID      string     `gorm:"uniqueIndex;size:64;not null" json:"qr_code_id"`
	FacilityID    uint       `gorm:"not null;index:idx_qr_facility_type" json:"facility_id"`
	Type          string     `gorm:"size:15;not null;index:idx_qr_facility_type" json:"type"`
	Action        string     `gorm:"size:20;not null" json:"action"`
	Token         string     `gorm:"size:512;not null" json:"-"`
	Location      *string    `gorm:"size:100" json:"location"`
	EntranceName  *string    `gorm:"size:100" json:"entrance_name"`
	Status        string     `gorm:"size:15;default:'active';index" json:"status"`
	ValidFrom     time.Time  `gorm:"not null" json:"valid_from"`
	ValidUntil    time.Time  `gorm:"not null;index" json:"valid_until"`
	ScanCount     int64      `gorm:"default:0" json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Facility Facility `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
}

func (QRCode) TableName() string {
	return "qr_codes"
}

// IsValid reports whether the QR code may be scanned at the given instant:
// status must be active and now must fall inside [valid_from, valid_until].
func (q *QRCode) IsValid(now time.Time) bool {
	return q.Status == QRStatusActive &&
		!now.Before(q.ValidFrom) &&
		!now.After(q.ValidUntil)
}

// ============================================================
// Device Table
// ============================================================

// Device platforms
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Device statuses
const (
	DeviceStatusActive   = "active"
	DeviceStatusInactive = "inactive"
	DeviceStatusBlocked  = "blocked"
)

// DeviceInfo holds client-reported device metadata, refreshed on every
// entry scan
type DeviceInfo struct {
	Platform     string  `gorm:"size:10;not null" json:"platform"`
	Manufacturer *string `gorm:"size:100" json:"manufacturer"`
	Model        *string `gorm:"size:100" json:"model"`
	OSVersion    *string `gorm:"size:50" json:"os_version"`
	AppVersion   *string `gorm:"size:50" json:"app_version"`
	DeviceName   *string `gorm:"size:100" json:"device_name"`
}

// Device represents devices table. Devices are created on first entry scan
// and never deleted (audit retention).
type Device struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	DeviceID          string     `gorm:"uniqueIndex;size:128;not null" json:"device_id"`
	Info              DeviceInfo `gorm:"embedded;embeddedPrefix:info_" json:"device_info"`
	Status            string     `gorm:"size:15;default:'inactive';index" json:"status"`
	CurrentFacilityID *uint      `gorm:"index" json:"current_facility_id"`
	LastActivity      time.Time  `gorm:"autoUpdateTime" json:"last_activity"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	CurrentFacility *Facility `gorm:"foreignKey:CurrentFacilityID" json:"current_facility,omitempty"`
}

func (Device) TableName() string {
	return "devices"
}

// ============================================================
// Enrollment Tables
// ============================================================

// Enrollment statuses
const (
	EnrollmentStatusActive        = "active"
	EnrollmentStatusCompleted     = "completed"
	EnrollmentStatusExpired       = "expired"
	EnrollmentStatusForcedExit    = "forced_exit"
	EnrollmentStatusEmergencyExit = "emergency_exit"
)

// Enrollment represents enrollments table, one row per stay of a device
// inside a facility. Rows are never deleted.
//
// ActiveDeviceID mirrors DeviceID while status=active and is NULLed on every
// terminal transition. The unique index on it enforces at most one active
// enrollment per device: a losing concurrent writer gets a duplicate-key
// error instead of corrupting the invariant.
type Enrollment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EnrollmentID    string     `gorm:"uniqueIndex;size:36;not null" json:"enrollment_id"`
	DeviceID        uint       `gorm:"not null;index" json:"device_id"`
	ActiveDeviceID  *uint      `gorm:"uniqueIndex" json:"-"`
	FacilityID      uint       `gorm:"not null;index" json:"facility_id"`
	EntryQRCodeID   *uint      `json:"entry_qr_code_id"`
	ExitQRCodeID    *uint      `json:"exit_qr_code_id"`
	Status          string     `gorm:"size:20;default:'active';index" json:"status"`
	EnrolledAt      time.Time  `gorm:"not null;index" json:"enrolled_at"`
	UnenrolledAt    *time.Time `json:"unenrolled_at"`
	DurationMinutes int64      `gorm:"default:0" json:"duration_minutes"`
	Notes           *string    `gorm:"size:255" json:"notes"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Device     Device                `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	Facility   Facility              `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	Actions    []EnrollmentAction    `gorm:"foreignKey:EnrollmentID;references:ID" json:"actions,omitempty"`
	Violations []EnrollmentViolation `gorm:"foreignKey:EnrollmentID;references:ID" json:"violations,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// ComputeDuration returns the stay length in whole minutes (floor)
func (e *Enrollment) ComputeDuration() int64 {
	if e.UnenrolledAt == nil {
		return 0
	}
	d := e.UnenrolledAt.Sub(e.EnrolledAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// Enrollment action kinds (append-only log)
const (
	ActionEnrolled       = "enrolled"
	ActionCameraLocked   = "camera_locked"
	ActionCameraUnlocked = "camera_unlocked"
	ActionUnenrolled     = "unenrolled"
	ActionExpired        = "expired"
	ActionForcedExit     = "forced_exit"
)

// EnrollmentAction represents enrollment_actions table (append-only)
type EnrollmentAction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EnrollmentID  uint      `gorm:"not null;index" json:"enrollment_id"`
	Action        string    `gorm:"size:20;not null" json:"action"`
	QRCodeScanned *string   `gorm:"size:64" json:"qr_code_scanned"`
	PerformedBy   *string   `gorm:"size:100" json:"performed_by"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
}

func (EnrollmentAction) TableName() string {
	return "enrollment_actions"
}

// Violation types and severities
const (
	ViolationCameraAccess = "camera_access_attempt"
	ViolationPolicy       = "policy_violation"
	ViolationTimeout      = "timeout"
	ViolationSuspicious   = "suspicious_activity"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// EnrollmentViolation represents enrollment_violations table (append-only)
type EnrollmentViolation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EnrollmentID uint      `gorm:"not null;index" json:"enrollment_id"`
	Type         string    `gorm:"size:30;not null" json:"type"`
	Description  string    `gorm:"size:255" json:"description"`
	Severity     string    `gorm:"size:10;default:'medium'" json:"severity"`
	Timestamp    time.Time `gorm:"not null" json:"timestamp"`
}

func (EnrollmentViolation) TableName() string {
	return "enrollment_violations"
}

// ============================================================
// Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Facility{},
		&QRCode{},
		&Device{},
		&Enrollment{},
		&EnrollmentAction{},
		&EnrollmentViolation{},
	)
}
