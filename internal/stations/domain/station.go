package stations

import (
	"context"
	"errors"
	"time"

	"firewatch-cloud/internal/geo"
)

// Station represents a responder station able to take fire alerts.
type Station struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Code             string       `json:"code"`
	Location         geo.Location `json:"location"`
	CoverageRadiusKm float64      `json:"coverage_radius_km"`
	ContactPhone     string       `json:"contact_phone,omitempty"`
	City             string       `json:"city,omitempty"`
	Active           bool         `json:"active"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.ID == "" {
		return errors.New("station: empty id")
	}
	if s.Name == "" {
		return errors.New("station: empty name")
	}
	if s.Code == "" {
		return errors.New("station: empty code")
	}
	if s.CoverageRadiusKm <= 0 {
		return errors.New("station: coverage radius must be positive")
	}
	return s.Location.Validate()
}

// StationRepository manages station persistence.
type StationRepository interface {
	Get(ctx context.Context, id string) (*Station, error)
	ListActive(ctx context.Context) ([]Station, error)
	Save(ctx context.Context, station *Station) error
}
