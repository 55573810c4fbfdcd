package directory

import (
	"context"
	"testing"

	"firewatch-cloud/internal/geo"
	stations "firewatch-cloud/internal/stations/domain"
	stationmemory "firewatch-cloud/internal/stations/infrastructure/memory"
)

func seedStations(t *testing.T) *stationmemory.StationRepository {
	t.Helper()
	repo := stationmemory.NewStationRepository()
	// Distances from the query point (77.60, 12.97):
	// st-close ~1.6 km, st-mid ~12 km, st-far ~30 km.
	all := []stations.Station{
		{ID: "st-far", Name: "North HQ", Code: "NH-3", Active: true, CoverageRadiusKm: 20, Location: geo.Location{Longitude: 77.75, Latitude: 13.20}},
		{ID: "st-close", Name: "Central", Code: "CT-1", Active: true, CoverageRadiusKm: 10, Location: geo.Location{Longitude: 77.61, Latitude: 12.98}},
		{ID: "st-mid", Name: "East Yard", Code: "EY-2", Active: true, CoverageRadiusKm: 15, Location: geo.Location{Longitude: 77.71, Latitude: 12.97}},
		{ID: "st-off", Name: "Decommissioned", Code: "DX-9", Active: false, CoverageRadiusKm: 10, Location: geo.Location{Longitude: 77.60, Latitude: 12.97}},
	}
	for i := range all {
		if err := repo.Save(context.Background(), &all[i]); err != nil {
			t.Fatalf("save station: %v", err)
		}
	}
	return repo
}

func TestNearestOrdering(t *testing.T) {
	dir, err := New(seedStations(t))
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	point := geo.Location{Longitude: 77.60, Latitude: 12.97}

	got, err := dir.Nearest(context.Background(), point, nil, 10)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	want := []string{"st-close", "st-mid", "st-far"}
	if len(got) != len(want) {
		t.Fatalf("expected %d stations, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestNearestExcludesAndLimits(t *testing.T) {
	dir, err := New(seedStations(t))
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	point := geo.Location{Longitude: 77.60, Latitude: 12.97}

	got, err := dir.Nearest(context.Background(), point, map[string]struct{}{"st-close": {}}, 1)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != 1 || got[0].ID != "st-mid" {
		t.Fatalf("expected st-mid, got %+v", got)
	}
}

func TestNearestEmptyWhenExhausted(t *testing.T) {
	dir, err := New(seedStations(t))
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	point := geo.Location{Longitude: 77.60, Latitude: 12.97}
	excluding := map[string]struct{}{"st-close": {}, "st-mid": {}, "st-far": {}}

	got, err := dir.Nearest(context.Background(), point, excluding, 5)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestNearestTieBreakByID(t *testing.T) {
	repo := stationmemory.NewStationRepository()
	same := geo.Location{Longitude: 77.65, Latitude: 12.99}
	for _, id := range []string{"st-b", "st-a"} {
		station := stations.Station{ID: id, Name: id, Code: id, Active: true, CoverageRadiusKm: 5, Location: same}
		if err := repo.Save(context.Background(), &station); err != nil {
			t.Fatalf("save station: %v", err)
		}
	}
	dir, err := New(repo)
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}

	got, err := dir.Nearest(context.Background(), geo.Location{Longitude: 77.60, Latitude: 12.97}, nil, 2)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != 2 || got[0].ID != "st-a" || got[1].ID != "st-b" {
		t.Fatalf("expected deterministic tie-break st-a then st-b, got %+v", got)
	}
}
