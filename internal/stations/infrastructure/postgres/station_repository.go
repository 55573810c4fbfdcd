package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	stations "firewatch-cloud/internal/stations/domain"
)

// StationRepository is a Postgres repository for responder stations.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository constructs a repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Get fetches a station by id.
func (r *StationRepository) Get(ctx context.Context, id string) (*stations.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, code, longitude, latitude, address, coverage_radius_km,
	contact_phone, city, active, created_at, updated_at
FROM responder_stations
WHERE id = $1`, id)
	return scanStation(row)
}

// ListActive returns all active stations.
func (r *StationRepository) ListActive(ctx context.Context) ([]stations.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, code, longitude, latitude, address, coverage_radius_km,
	contact_phone, city, active, created_at, updated_at
FROM responder_stations
WHERE active = TRUE
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []stations.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *station)
	}
	return result, rows.Err()
}

// Save inserts or updates a station.
func (r *StationRepository) Save(ctx context.Context, station *stations.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}
	if station.CreatedAt.IsZero() {
		station.CreatedAt = time.Now().UTC()
	}
	station.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO responder_stations (
	id, name, code, longitude, latitude, address, coverage_radius_km,
	contact_phone, city, active, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	code = EXCLUDED.code,
	longitude = EXCLUDED.longitude,
	latitude = EXCLUDED.latitude,
	address = EXCLUDED.address,
	coverage_radius_km = EXCLUDED.coverage_radius_km,
	contact_phone = EXCLUDED.contact_phone,
	city = EXCLUDED.city,
	active = EXCLUDED.active,
	updated_at = EXCLUDED.updated_at`,
		station.ID,
		station.Name,
		station.Code,
		station.Location.Longitude,
		station.Location.Latitude,
		station.Location.Address,
		station.CoverageRadiusKm,
		station.ContactPhone,
		station.City,
		station.Active,
		station.CreatedAt,
		station.UpdatedAt,
	)
	return err
}

type stationScanner interface {
	Scan(dest ...any) error
}

func scanStation(row stationScanner) (*stations.Station, error) {
	var station stations.Station
	var address, phone, city sql.NullString
	err := row.Scan(
		&station.ID,
		&station.Name,
		&station.Code,
		&station.Location.Longitude,
		&station.Location.Latitude,
		&address,
		&station.CoverageRadiusKm,
		&phone,
		&city,
		&station.Active,
		&station.CreatedAt,
		&station.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	station.Location.Address = address.String
	station.ContactPhone = phone.String
	station.City = city.String
	return &station, nil
}
