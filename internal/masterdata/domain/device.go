package masterdata

import (
	"context"
	"errors"
	"time"
)

// Device operational statuses.
const (
	DeviceStatusActive   = "active"
	DeviceStatusInactive = "inactive"
	DeviceStatusOffline  = "offline"
)

// Device represents a fire-detection sensor installed at a tenant site.
type Device struct {
	ID string `json:"id"`
	// TenantID is empty until the device is registered to a tenant.
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name,omitempty"`
	// StaticDangerLevel is the 0-100 baseline risk of the installation
	// site (room type, stored materials).
	StaticDangerLevel float64   `json:"static_danger_level"`
	Status            string    `json:"status"`
	Registered        bool      `json:"registered"`
	LastSeenAt        time.Time `json:"last_seen_at,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device: empty id")
	}
	if d.Registered && d.TenantID == "" {
		return errors.New("device: registered device needs a tenant")
	}
	if d.StaticDangerLevel < 0 || d.StaticDangerLevel > 100 {
		return errors.New("device: static danger level out of range")
	}
	switch d.Status {
	case DeviceStatusActive, DeviceStatusInactive, DeviceStatusOffline:
	default:
		return errors.New("device: invalid status")
	}
	return nil
}

// DeviceRepository manages device persistence.
type DeviceRepository interface {
	Get(ctx context.Context, id string) (*Device, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Device, error)
	// ListStaleActive returns active devices not seen since the cutoff.
	ListStaleActive(ctx context.Context, cutoff time.Time) ([]Device, error)
	Save(ctx context.Context, device *Device) error
	SetStatus(ctx context.Context, id, status string, at time.Time) error
	MarkSeen(ctx context.Context, id string, at time.Time) error
}
