package memory

import (
	"context"
	"errors"
	"sync"

	stations "firewatch-cloud/internal/stations/domain"
)

// StationRepository is an in-memory repository for responder stations.
type StationRepository struct {
	mu   sync.RWMutex
	data map[string]stations.Station
}

// NewStationRepository constructs a repository.
func NewStationRepository() *StationRepository {
	return &StationRepository{data: make(map[string]stations.Station)}
}

// Get fetches a station by id.
func (r *StationRepository) Get(ctx context.Context, id string) (*stations.Station, error) {
	_ = ctx
	if r == nil {
		return nil, errors.New("station repo: not initialized")
	}
	r.mu.RLock()
	station, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &station, nil
}

// ListActive returns all active stations.
func (r *StationRepository) ListActive(ctx context.Context) ([]stations.Station, error) {
	_ = ctx
	if r == nil {
		return nil, errors.New("station repo: not initialized")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]stations.Station, 0, len(r.data))
	for _, station := range r.data {
		if station.Active {
			result = append(result, station)
		}
	}
	return result, nil
}

// Save inserts or replaces a station.
func (r *StationRepository) Save(ctx context.Context, station *stations.Station) error {
	_ = ctx
	if r == nil {
		return errors.New("station repo: not initialized")
	}
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[station.ID] = *station
	r.mu.Unlock()
	return nil
}
