package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	masterdata "firewatch-cloud/internal/masterdata/domain"
)

// TenantRepository is a Postgres repository for tenants.
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository constructs a repository.
func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Get fetches a tenant by id.
func (r *TenantRepository) Get(ctx context.Context, id string) (*masterdata.Tenant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tenant repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, longitude, latitude, address, contact_phone, created_at, updated_at
FROM tenants
WHERE id = $1`, id)

	var tenant masterdata.Tenant
	var address, phone sql.NullString
	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Location.Longitude,
		&tenant.Location.Latitude,
		&address,
		&phone,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tenant.Location.Address = address.String
	tenant.ContactPhone = phone.String
	return &tenant, nil
}

// Save inserts or updates a tenant.
func (r *TenantRepository) Save(ctx context.Context, tenant *masterdata.Tenant) error {
	if r == nil || r.db == nil {
		return errors.New("tenant repo: nil db")
	}
	if tenant == nil {
		return errors.New("tenant repo: nil tenant")
	}
	if err := tenant.Validate(); err != nil {
		return err
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	tenant.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO tenants (id, name, longitude, latitude, address, contact_phone, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	longitude = EXCLUDED.longitude,
	latitude = EXCLUDED.latitude,
	address = EXCLUDED.address,
	contact_phone = EXCLUDED.contact_phone,
	updated_at = EXCLUDED.updated_at`,
		tenant.ID,
		tenant.Name,
		tenant.Location.Longitude,
		tenant.Location.Latitude,
		tenant.Location.Address,
		tenant.ContactPhone,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	return err
}

// DeviceRepository is a Postgres repository for devices.
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, tenant_id, name, static_danger_level, status, registered, last_seen_at, created_at, updated_at`

// Get fetches a device by id.
func (r *DeviceRepository) Get(ctx context.Context, id string) (*masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE id = $1`, id)
	return scanDevice(row)
}

// ListByTenant returns all devices registered to a tenant.
func (r *DeviceRepository) ListByTenant(ctx context.Context, tenantID string) ([]masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE tenant_id = $1
ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// ListStaleActive returns active devices whose last reading is before cutoff.
func (r *DeviceRepository) ListStaleActive(ctx context.Context, cutoff time.Time) ([]masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE status = $1 AND (last_seen_at IS NULL OR last_seen_at < $2)
ORDER BY id`, masterdata.DeviceStatusActive, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// Save inserts or updates a device.
func (r *DeviceRepository) Save(ctx context.Context, device *masterdata.Device) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	device.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO devices (id, tenant_id, name, static_danger_level, status, registered, last_seen_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	tenant_id = EXCLUDED.tenant_id,
	name = EXCLUDED.name,
	static_danger_level = EXCLUDED.static_danger_level,
	status = EXCLUDED.status,
	registered = EXCLUDED.registered,
	last_seen_at = EXCLUDED.last_seen_at,
	updated_at = EXCLUDED.updated_at`,
		device.ID,
		nullableString(device.TenantID),
		device.Name,
		device.StaticDangerLevel,
		device.Status,
		device.Registered,
		nullableTime(device.LastSeenAt),
		device.CreatedAt,
		device.UpdatedAt,
	)
	return err
}

// SetStatus updates a device's operational status.
func (r *DeviceRepository) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE devices SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	return err
}

// MarkSeen records the time of the latest reading from a device.
func (r *DeviceRepository) MarkSeen(ctx context.Context, id string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE devices SET last_seen_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

type deviceScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row deviceScanner) (*masterdata.Device, error) {
	var device masterdata.Device
	var tenantID sql.NullString
	var lastSeen sql.NullTime
	err := row.Scan(
		&device.ID,
		&tenantID,
		&device.Name,
		&device.StaticDangerLevel,
		&device.Status,
		&device.Registered,
		&lastSeen,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	device.TenantID = tenantID.String
	if lastSeen.Valid {
		device.LastSeenAt = lastSeen.Time
	}
	return &device, nil
}

func collectDevices(rows *sql.Rows) ([]masterdata.Device, error) {
	var result []masterdata.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *device)
	}
	return result, rows.Err()
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullableTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value, Valid: !value.IsZero()}
}
