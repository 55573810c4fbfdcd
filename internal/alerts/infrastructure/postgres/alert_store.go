package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	alerts "firewatch-cloud/internal/alerts/domain"
)

const alertColumns = `id, device_id, tenant_id, assigned_station_id, status,
	danger_level, initial_danger_level, confidence, occupant_count,
	response_timeout_ms, escalation_history, stalled,
	resolved_at, resolution_notes, created_at, updated_at, version`

// AlertStore is a Postgres alert store. A partial unique index on
// device_id over non-terminal rows enforces one active alert per
// device; the version column backs optimistic compare-and-update.
//
// Schema:
//
//	CREATE TABLE fire_alerts (
//	    id                   TEXT PRIMARY KEY,
//	    device_id            TEXT NOT NULL,
//	    tenant_id            TEXT NOT NULL,
//	    assigned_station_id  TEXT NOT NULL,
//	    status               TEXT NOT NULL,
//	    danger_level         DOUBLE PRECISION NOT NULL,
//	    initial_danger_level DOUBLE PRECISION NOT NULL,
//	    confidence           DOUBLE PRECISION NOT NULL,
//	    occupant_count       INTEGER NOT NULL,
//	    response_timeout_ms  BIGINT NOT NULL,
//	    escalation_history   JSONB NOT NULL,
//	    stalled              BOOLEAN NOT NULL DEFAULT FALSE,
//	    resolved_at          TIMESTAMPTZ,
//	    resolution_notes     TEXT,
//	    created_at           TIMESTAMPTZ NOT NULL,
//	    updated_at           TIMESTAMPTZ NOT NULL,
//	    version              BIGINT NOT NULL
//	);
//	CREATE UNIQUE INDEX fire_alerts_active_device ON fire_alerts (device_id)
//	    WHERE status NOT IN ('resolved', 'false_alarm');
type AlertStore struct {
	db *sql.DB
}

// NewAlertStore constructs a store.
func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

// Insert persists a new alert. A concurrent active alert for the same
// device surfaces as ErrDuplicateActive.
func (s *AlertStore) Insert(ctx context.Context, alert *alerts.Alert) error {
	if s == nil || s.db == nil {
		return errors.New("alert store: nil db")
	}
	if alert == nil {
		return errors.New("alert store: nil alert")
	}
	if err := alert.Validate(); err != nil {
		return err
	}
	history, err := json.Marshal(alert.EscalationHistory)
	if err != nil {
		return err
	}
	if alert.Version == 0 {
		alert.Version = 1
	}
	result, err := s.db.ExecContext(ctx, `
INSERT INTO fire_alerts (
	id, device_id, tenant_id, assigned_station_id, status,
	danger_level, initial_danger_level, confidence, occupant_count,
	response_timeout_ms, escalation_history, stalled,
	resolved_at, resolution_notes, created_at, updated_at, version
) VALUES (
	$1, $2, $3, $4, $5,
	$6, $7, $8, $9,
	$10, $11, $12,
	$13, $14, $15, $16, $17
)
ON CONFLICT (device_id) WHERE status NOT IN ('resolved', 'false_alarm') DO NOTHING`,
		alert.ID,
		alert.DeviceID,
		alert.TenantID,
		alert.AssignedStationID,
		alert.Status,
		alert.DangerLevel,
		alert.InitialDangerLevel,
		alert.Confidence,
		alert.OccupantCount,
		alert.ResponseTimeout.Milliseconds(),
		history,
		alert.Stalled,
		nullableTime(alert.ResolvedAt),
		nullableString(alert.ResolutionNotes),
		alert.CreatedAt,
		alert.UpdatedAt,
		alert.Version,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alerts.ErrDuplicateActive
	}
	return nil
}

// Get fetches one alert by id.
func (s *AlertStore) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("alert store: nil db")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT `+alertColumns+`
FROM fire_alerts
WHERE id = $1`, id)
	return scanAlert(row)
}

// FindActiveByDevice returns the device's non-terminal alert.
func (s *AlertStore) FindActiveByDevice(ctx context.Context, deviceID string) (*alerts.Alert, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("alert store: nil db")
	}
	if deviceID == "" {
		return nil, errors.New("alert store: empty device id")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT `+alertColumns+`
FROM fire_alerts
WHERE device_id = $1 AND status NOT IN ('resolved', 'false_alarm')
ORDER BY created_at DESC
LIMIT 1`, deviceID)
	return scanAlert(row)
}

// CompareAndUpdate applies mutate to the current row and commits only
// when the version is unchanged.
func (s *AlertStore) CompareAndUpdate(ctx context.Context, id string, mutate func(*alerts.Alert) error) (*alerts.Alert, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("alert store: nil db")
	}
	if mutate == nil {
		return nil, errors.New("alert store: nil mutate")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return nil, alerts.ErrTerminal
	}
	baseVersion := current.Version

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	next.Version = baseVersion + 1

	history, err := json.Marshal(next.EscalationHistory)
	if err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx, `
UPDATE fire_alerts
SET assigned_station_id = $1, status = $2, danger_level = $3,
	response_timeout_ms = $4, escalation_history = $5, stalled = $6,
	resolved_at = $7, resolution_notes = $8, updated_at = $9, version = $10
WHERE id = $11 AND version = $12`,
		next.AssignedStationID,
		next.Status,
		next.DangerLevel,
		next.ResponseTimeout.Milliseconds(),
		history,
		next.Stalled,
		nullableTime(next.ResolvedAt),
		nullableString(next.ResolutionNotes),
		next.UpdatedAt,
		next.Version,
		id,
		baseVersion,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Classify the lost write: gone, closed, or merely raced.
		latest, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if latest.IsTerminal() {
			return nil, alerts.ErrTerminal
		}
		return nil, alerts.ErrConflict
	}
	return next, nil
}

// List returns alerts matching the filter, newest first.
func (s *AlertStore) List(ctx context.Context, filter alerts.Filter) ([]alerts.Alert, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("alert store: nil db")
	}
	query := `
SELECT ` + alertColumns + `
FROM fire_alerts
WHERE 1 = 1`
	var args []any
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if filter.StationID != "" {
		args = append(args, filter.StationID)
		query += fmt.Sprintf(" AND assigned_station_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type alertScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row alertScanner) (*alerts.Alert, error) {
	var alert alerts.Alert
	var timeoutMs int64
	var history []byte
	var resolvedAt sql.NullTime
	var notes sql.NullString
	if err := row.Scan(
		&alert.ID,
		&alert.DeviceID,
		&alert.TenantID,
		&alert.AssignedStationID,
		&alert.Status,
		&alert.DangerLevel,
		&alert.InitialDangerLevel,
		&alert.Confidence,
		&alert.OccupantCount,
		&timeoutMs,
		&history,
		&alert.Stalled,
		&resolvedAt,
		&notes,
		&alert.CreatedAt,
		&alert.UpdatedAt,
		&alert.Version,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, alerts.ErrNotFound
		}
		return nil, err
	}
	alert.ResponseTimeout = time.Duration(timeoutMs) * time.Millisecond
	if len(history) > 0 {
		if err := json.Unmarshal(history, &alert.EscalationHistory); err != nil {
			return nil, err
		}
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = resolvedAt.Time.UTC()
	}
	if notes.Valid {
		alert.ResolutionNotes = notes.String
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	alert.UpdatedAt = alert.UpdatedAt.UTC()
	return &alert, nil
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
