package masterdata

import (
	"context"
	"errors"
	"time"

	"firewatch-cloud/internal/geo"
)

// Tenant represents a company site protected by fire devices.
type Tenant struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Location     geo.Location `json:"location"`
	ContactPhone string       `json:"contact_phone,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Validate checks tenant invariants.
func (t Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("tenant: empty id")
	}
	if t.Name == "" {
		return errors.New("tenant: empty name")
	}
	return t.Location.Validate()
}

// TenantRepository manages tenant persistence.
type TenantRepository interface {
	Get(ctx context.Context, id string) (*Tenant, error)
	Save(ctx context.Context, tenant *Tenant) error
}
