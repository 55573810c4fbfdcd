// Command seed loads a demo dataset of responder stations, tenants and
// devices into Postgres.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"firewatch-cloud/internal/geo"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	masterdatarepo "firewatch-cloud/internal/masterdata/infrastructure/postgres"
	stations "firewatch-cloud/internal/stations/domain"
	stationrepo "firewatch-cloud/internal/stations/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn              string
	tenantCount      int
	devicesPerTenant int
	seed             int64
}

// Bengaluru city center; generated sites scatter around it.
var cityCenter = geo.Location{Longitude: 77.5946, Latitude: 12.9716}

var stationSeed = []stations.Station{
	{ID: "station-kor", Name: "Koramangala Fire Station", Code: "BLR-KOR", Location: geo.Location{Longitude: 77.6245, Latitude: 12.9352}, CoverageRadiusKm: 12, ContactPhone: "+91-80-22971500", City: "Bengaluru"},
	{ID: "station-hsr", Name: "HSR Layout Fire Station", Code: "BLR-HSR", Location: geo.Location{Longitude: 77.6446, Latitude: 12.9121}, CoverageRadiusKm: 10, ContactPhone: "+91-80-22971501", City: "Bengaluru"},
	{ID: "station-wtf", Name: "Whitefield Fire Station", Code: "BLR-WTF", Location: geo.Location{Longitude: 77.7499, Latitude: 12.9698}, CoverageRadiusKm: 15, ContactPhone: "+91-80-22971502", City: "Bengaluru"},
	{ID: "station-mal", Name: "Malleshwaram Fire Station", Code: "BLR-MAL", Location: geo.Location{Longitude: 77.5700, Latitude: 13.0031}, CoverageRadiusKm: 12, ContactPhone: "+91-80-22971503", City: "Bengaluru"},
	{ID: "station-jay", Name: "Jayanagar Fire Station", Code: "BLR-JAY", Location: geo.Location{Longitude: 77.5838, Latitude: 12.9250}, CoverageRadiusKm: 10, ContactPhone: "+91-80-22971504", City: "Bengaluru"},
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.tenantCount <= 0 {
		log.Fatal("tenants must be > 0")
	}
	if cfg.devicesPerTenant <= 0 {
		log.Fatal("devices-per-tenant must be > 0")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(cfg.seed))
	now := time.Now().UTC()

	stationStore := stationrepo.NewStationRepository(db)
	for _, station := range stationSeed {
		station.Active = true
		station.CreatedAt = now
		station.UpdatedAt = now
		if err := stationStore.Save(ctx, &station); err != nil {
			log.Fatalf("seed station %s: %v", station.ID, err)
		}
	}
	log.Printf("seeded %d stations", len(stationSeed))

	tenantStore := masterdatarepo.NewTenantRepository(db)
	deviceStore := masterdatarepo.NewDeviceRepository(db)
	deviceCount := 0
	for i := 1; i <= cfg.tenantCount; i++ {
		tenant := &masterdata.Tenant{
			ID:   fmt.Sprintf("tenant-%03d", i),
			Name: fmt.Sprintf("Demo Company %03d", i),
			Location: geo.Location{
				Longitude: jitter(rng, cityCenter.Longitude, 0.12),
				Latitude:  jitter(rng, cityCenter.Latitude, 0.09),
				Address:   fmt.Sprintf("%d Industrial Layout, Bengaluru", i),
			},
			ContactPhone: fmt.Sprintf("+91-90000%05d", i),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tenantStore.Save(ctx, tenant); err != nil {
			log.Fatalf("seed tenant %s: %v", tenant.ID, err)
		}
		for j := 1; j <= cfg.devicesPerTenant; j++ {
			device := &masterdata.Device{
				ID:                fmt.Sprintf("%s-dev-%02d", tenant.ID, j),
				TenantID:          tenant.ID,
				Name:              fmt.Sprintf("sensor unit %02d", j),
				StaticDangerLevel: float64(rng.Intn(61)),
				Status:            masterdata.DeviceStatusActive,
				Registered:        true,
				LastSeenAt:        now,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := deviceStore.Save(ctx, device); err != nil {
				log.Fatalf("seed device %s: %v", device.ID, err)
			}
			deviceCount++
		}
	}
	log.Printf("seeded %d tenants, %d devices", cfg.tenantCount, deviceCount)
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "dsn", getenvDefault("PG_DSN", os.Getenv("DATABASE_URL")), "postgres dsn")
	flag.IntVar(&cfg.tenantCount, "tenants", 10, "number of tenants to create")
	flag.IntVar(&cfg.devicesPerTenant, "devices-per-tenant", 3, "devices per tenant")
	flag.Int64Var(&cfg.seed, "seed", 42, "random seed for locations and risk levels")
	flag.Parse()
	return cfg
}

func jitter(rng *rand.Rand, center, spread float64) float64 {
	return center + (rng.Float64()*2-1)*spread
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
