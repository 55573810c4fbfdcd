package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	masterdata "firewatch-cloud/internal/masterdata/domain"
)

// TenantRepository is an in-memory repository for tenants.
type TenantRepository struct {
	mu   sync.RWMutex
	data map[string]masterdata.Tenant
}

// NewTenantRepository constructs a repository.
func NewTenantRepository() *TenantRepository {
	return &TenantRepository{data: make(map[string]masterdata.Tenant)}
}

// Get fetches a tenant by id.
func (r *TenantRepository) Get(ctx context.Context, id string) (*masterdata.Tenant, error) {
	_ = ctx
	if r == nil {
		return nil, errors.New("tenant repo: not initialized")
	}
	r.mu.RLock()
	tenant, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &tenant, nil
}

// Save inserts or replaces a tenant.
func (r *TenantRepository) Save(ctx context.Context, tenant *masterdata.Tenant) error {
	_ = ctx
	if r == nil {
		return errors.New("tenant repo: not initialized")
	}
	if tenant == nil {
		return errors.New("tenant repo: nil tenant")
	}
	if err := tenant.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[tenant.ID] = *tenant
	r.mu.Unlock()
	return nil
}

// DeviceRepository is an in-memory repository for devices.
type DeviceRepository struct {
	mu   sync.RWMutex
	data map[string]masterdata.Device
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{data: make(map[string]masterdata.Device)}
}

// Get fetches a device by id.
func (r *DeviceRepository) Get(ctx context.Context, id string) (*masterdata.Device, error) {
	_ = ctx
	if r == nil {
		return nil, errors.New("device repo: not initialized")
	}
	r.mu.RLock()
	device, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &device, nil
}

// ListByTenant returns all devices registered to a tenant.
func (r *DeviceRepository) ListByTenant(ctx context.Context, tenantID string) ([]masterdata.Device, error) {
	_ = ctx
	if r == nil {
		return nil, errors.New("device repo: not initialized")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []masterdata.Device
	for _, device := range r.data {
		if device.TenantID == tenantID {
			result = append(result, device)
		}
	}
	return result, nil
}

// ListStaleActive returns active devices whose last reading is before cutoff.
func (r *DeviceRepository) ListStaleActive(ctx context.Context, cutoff time.Time) ([]masterdata.Device, error) {
	_ = ctx
	if r == nil {
		return nil, errors.New("device repo: not initialized")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []masterdata.Device
	for _, device := range r.data {
		if device.Status != masterdata.DeviceStatusActive {
			continue
		}
		if device.LastSeenAt.Before(cutoff) {
			result = append(result, device)
		}
	}
	return result, nil
}

// Save inserts or replaces a device.
func (r *DeviceRepository) Save(ctx context.Context, device *masterdata.Device) error {
	_ = ctx
	if r == nil {
		return errors.New("device repo: not initialized")
	}
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[device.ID] = *device
	r.mu.Unlock()
	return nil
}

// SetStatus updates a device's operational status.
func (r *DeviceRepository) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	_ = ctx
	if r == nil {
		return errors.New("device repo: not initialized")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.data[id]
	if !ok {
		return errors.New("device repo: device not found")
	}
	device.Status = status
	device.UpdatedAt = at
	r.data[id] = device
	return nil
}

// MarkSeen records the time of the latest reading from a device.
func (r *DeviceRepository) MarkSeen(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	if r == nil {
		return errors.New("device repo: not initialized")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.data[id]
	if !ok {
		return errors.New("device repo: device not found")
	}
	device.LastSeenAt = at
	device.UpdatedAt = at
	r.data[id] = device
	return nil
}
