package application

import (
	"context"
	"strings"
	"testing"

	mdmem "firewatch-cloud/internal/masterdata/infrastructure/memory"
	stmem "firewatch-cloud/internal/stations/infrastructure/memory"
)

func newService(t *testing.T) (*Service, *stmem.StationRepository, *mdmem.TenantRepository, *mdmem.DeviceRepository) {
	t.Helper()
	stations := stmem.NewStationRepository()
	tenants := mdmem.NewTenantRepository()
	devices := mdmem.NewDeviceRepository()
	service, err := NewService(stations, tenants, devices)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, stations, tenants, devices
}

func TestRegisterStationGeneratesStableID(t *testing.T) {
	service, repo, _, _ := newService(t)

	station, err := service.RegisterStation(context.Background(), StationInput{
		Name:             "Koramangala Fire Station",
		Code:             "BLR-KOR",
		Longitude:        77.62,
		Latitude:         12.94,
		CoverageRadiusKm: 12,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(station.ID, "station-") {
		t.Fatalf("id = %q, want station- prefix", station.ID)
	}
	if !station.Active {
		t.Fatal("new station not active")
	}

	again, err := service.RegisterStation(context.Background(), StationInput{
		Name:             "Koramangala Fire Station",
		Code:             "BLR-KOR",
		Longitude:        77.62,
		Latitude:         12.94,
		CoverageRadiusKm: 12,
	})
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if again.ID != station.ID {
		t.Fatalf("same code gave ids %q and %q", station.ID, again.ID)
	}

	list, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("stations = %d, want upsert", len(list))
	}
}

func TestRegisterStationRejectsBadInput(t *testing.T) {
	service, _, _, _ := newService(t)

	if _, err := service.RegisterStation(context.Background(), StationInput{
		Name: "No Code", Longitude: 77, Latitude: 12, CoverageRadiusKm: 5,
	}); err == nil {
		t.Fatal("expected error for missing code")
	}
	if _, err := service.RegisterStation(context.Background(), StationInput{
		Name: "Bad Coords", Code: "X", Longitude: 200, Latitude: 12, CoverageRadiusKm: 5,
	}); err == nil {
		t.Fatal("expected error for longitude out of range")
	}
}

func TestRegisterDeviceRequiresTenant(t *testing.T) {
	service, _, _, devices := newService(t)

	if _, err := service.RegisterDevice(context.Background(), DeviceInput{
		TenantID: "ghost", Name: "unit", StaticDangerLevel: 10,
	}); err == nil {
		t.Fatal("expected error for unknown tenant")
	}

	tenant, err := service.RegisterTenant(context.Background(), TenantInput{
		Name: "Acme Works", Longitude: 77.6, Latitude: 12.97, Address: "14 Industrial Layout",
	})
	if err != nil {
		t.Fatalf("register tenant: %v", err)
	}

	device, err := service.RegisterDevice(context.Background(), DeviceInput{
		TenantID: tenant.ID, Name: "boiler room", StaticDangerLevel: 40,
	})
	if err != nil {
		t.Fatalf("register device: %v", err)
	}
	if !device.Registered {
		t.Fatal("device not registered")
	}

	stored, err := devices.Get(context.Background(), device.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil || stored.TenantID != tenant.ID {
		t.Fatalf("stored device = %+v, want tenant %s", stored, tenant.ID)
	}
}
