package postgres

import (
	"context"
	"database/sql"
	"errors"

	"firewatch-cloud/internal/ingest"
)

// ReadingStore persists sampled sensor readings.
//
// Schema:
//
//	CREATE TABLE sensor_readings (
//	    id              BIGSERIAL PRIMARY KEY,
//	    device_id       TEXT NOT NULL,
//	    fire_detection  SMALLINT NOT NULL,
//	    confidence      DOUBLE PRECISION NOT NULL,
//	    human_detection INTEGER NOT NULL,
//	    observed_at     TIMESTAMPTZ NOT NULL
//	);
type ReadingStore struct {
	db *sql.DB
}

// NewReadingStore constructs a store.
func NewReadingStore(db *sql.DB) *ReadingStore {
	return &ReadingStore{db: db}
}

// Store inserts one reading.
func (s *ReadingStore) Store(ctx context.Context, reading ingest.SensorReading) error {
	if s == nil || s.db == nil {
		return errors.New("reading store: nil db")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sensor_readings (device_id, fire_detection, confidence, human_detection, observed_at)
VALUES ($1, $2, $3, $4, $5)`,
		reading.DeviceID,
		reading.FireDetection,
		reading.Confidence,
		reading.HumanDetection,
		reading.Timestamp,
	)
	return err
}

// Recent returns up to limit readings for a device, newest first.
func (s *ReadingStore) Recent(ctx context.Context, deviceID string, limit int) ([]ingest.SensorReading, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("reading store: nil db")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, fire_detection, confidence, human_detection, observed_at
FROM sensor_readings
WHERE device_id = $1
ORDER BY observed_at DESC
LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ingest.SensorReading
	for rows.Next() {
		var reading ingest.SensorReading
		if err := rows.Scan(
			&reading.DeviceID,
			&reading.FireDetection,
			&reading.Confidence,
			&reading.HumanDetection,
			&reading.Timestamp,
		); err != nil {
			return nil, err
		}
		reading.Timestamp = reading.Timestamp.UTC()
		result = append(result, reading)
	}
	return result, rows.Err()
}
