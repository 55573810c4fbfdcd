package directory

import (
	"context"
	"errors"
	"sort"

	"firewatch-cloud/internal/geo"
	stations "firewatch-cloud/internal/stations/domain"
)

// Directory answers nearest-station queries over the registered stations.
type Directory struct {
	stations stations.StationRepository
}

// New constructs a directory.
func New(repo stations.StationRepository) (*Directory, error) {
	if repo == nil {
		return nil, errors.New("directory: nil station repository")
	}
	return &Directory{stations: repo}, nil
}

// Nearest returns up to limit active stations ordered by ascending
// great-circle distance from point, skipping excluded station ids.
// Ties are broken by station id so results are reproducible.
func (d *Directory) Nearest(ctx context.Context, point geo.Location, excluding map[string]struct{}, limit int) ([]stations.Station, error) {
	if d == nil || d.stations == nil {
		return nil, errors.New("directory: not initialized")
	}
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	active, err := d.stations.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		station  stations.Station
		distance float64
	}
	candidates := make([]candidate, 0, len(active))
	for _, station := range active {
		if _, skip := excluding[station.ID]; skip {
			continue
		}
		candidates = append(candidates, candidate{
			station:  station,
			distance: geo.DistanceKm(point, station.Location),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].station.ID < candidates[j].station.ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	result := make([]stations.Station, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, c.station)
	}
	return result, nil
}
