package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"firewatch-cloud/internal/geo"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	stations "firewatch-cloud/internal/stations/domain"
)

// StationInput describes a responder station to register.
type StationInput struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Code             string  `json:"code"`
	Longitude        float64 `json:"longitude"`
	Latitude         float64 `json:"latitude"`
	CoverageRadiusKm float64 `json:"coverage_radius_km"`
	ContactPhone     string  `json:"contact_phone"`
	City             string  `json:"city"`
}

// TenantInput describes a protected company site to register.
type TenantInput struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	Address      string  `json:"address"`
	ContactPhone string  `json:"contact_phone"`
}

// DeviceInput describes a sensor device to register.
type DeviceInput struct {
	ID                string  `json:"id"`
	TenantID          string  `json:"tenant_id"`
	Name              string  `json:"name"`
	StaticDangerLevel float64 `json:"static_danger_level"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service registers responder stations, tenants and devices.
type Service struct {
	stations stations.StationRepository
	tenants  masterdata.TenantRepository
	devices  masterdata.DeviceRepository
	clock    Clock
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a registry service.
func NewService(stationRepo stations.StationRepository, tenantRepo masterdata.TenantRepository, deviceRepo masterdata.DeviceRepository, opts ...Option) (*Service, error) {
	if stationRepo == nil {
		return nil, errors.New("provisioning: nil station repository")
	}
	if tenantRepo == nil {
		return nil, errors.New("provisioning: nil tenant repository")
	}
	if deviceRepo == nil {
		return nil, errors.New("provisioning: nil device repository")
	}
	s := &Service{
		stations: stationRepo,
		tenants:  tenantRepo,
		devices:  deviceRepo,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterStation persists a responder station, generating a stable id
// from the station code when none is supplied.
func (s *Service) RegisterStation(ctx context.Context, input StationInput) (*stations.Station, error) {
	id := input.ID
	if id == "" {
		id = stableID("station", input.Code)
	}
	now := s.clock.Now().UTC()
	station := &stations.Station{
		ID:               id,
		Name:             input.Name,
		Code:             input.Code,
		Location:         geo.Location{Longitude: input.Longitude, Latitude: input.Latitude, Address: input.City},
		CoverageRadiusKm: input.CoverageRadiusKm,
		ContactPhone:     input.ContactPhone,
		City:             input.City,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := station.Validate(); err != nil {
		return nil, err
	}
	if err := s.stations.Save(ctx, station); err != nil {
		return nil, err
	}
	return station, nil
}

// RegisterTenant persists a tenant site.
func (s *Service) RegisterTenant(ctx context.Context, input TenantInput) (*masterdata.Tenant, error) {
	id := input.ID
	if id == "" {
		id = stableID("tenant", input.Name)
	}
	now := s.clock.Now().UTC()
	tenant := &masterdata.Tenant{
		ID:           id,
		Name:         input.Name,
		Location:     geo.Location{Longitude: input.Longitude, Latitude: input.Latitude, Address: input.Address},
		ContactPhone: input.ContactPhone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// RegisterDevice persists a device under an existing tenant.
func (s *Service) RegisterDevice(ctx context.Context, input DeviceInput) (*masterdata.Device, error) {
	tenant, err := s.tenants.Get(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, errors.New("provisioning: unknown tenant " + input.TenantID)
	}
	id := input.ID
	if id == "" {
		id = stableID("device", input.TenantID+"|"+input.Name)
	}
	now := s.clock.Now().UTC()
	device := &masterdata.Device{
		ID:                id,
		TenantID:          input.TenantID,
		Name:              input.Name,
		StaticDangerLevel: input.StaticDangerLevel,
		Status:            masterdata.DeviceStatusActive,
		Registered:        true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if err := s.devices.Save(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func stableID(prefix, key string) string {
	sum := sha1.Sum([]byte(key))
	return prefix + "-" + hex.EncodeToString(sum[:8])
}
