package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	alerts "firewatch-cloud/internal/alerts/domain"
)

// AlertStore is an in-memory, versioned alert store. Snapshots are read
// under a shared lock, mutations run on a copy, and the commit compares
// the stored version so concurrent writers observe a conflict instead
// of losing an update.
type AlertStore struct {
	mu   sync.RWMutex
	data map[string]*alerts.Alert
}

// NewAlertStore constructs a store.
func NewAlertStore() *AlertStore {
	return &AlertStore{data: make(map[string]*alerts.Alert)}
}

// Insert persists a new alert.
func (s *AlertStore) Insert(ctx context.Context, alert *alerts.Alert) error {
	_ = ctx
	if s == nil {
		return errors.New("alert store: not initialized")
	}
	if alert == nil {
		return errors.New("alert store: nil alert")
	}
	if err := alert.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[alert.ID]; exists {
		return errors.New("alert store: duplicate alert id")
	}
	for _, existing := range s.data {
		if existing.DeviceID == alert.DeviceID && !existing.IsTerminal() {
			return alerts.ErrDuplicateActive
		}
	}
	alert.Version = 1
	s.data[alert.ID] = alert.Clone()
	return nil
}

// Get returns a copy of the alert, or ErrNotFound.
func (s *AlertStore) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	_ = ctx
	if s == nil {
		return nil, errors.New("alert store: not initialized")
	}
	s.mu.RLock()
	stored := s.data[id]
	s.mu.RUnlock()
	if stored == nil {
		return nil, alerts.ErrNotFound
	}
	return stored.Clone(), nil
}

// FindActiveByDevice returns the non-terminal alert for a device, or
// ErrNotFound when the device has none.
func (s *AlertStore) FindActiveByDevice(ctx context.Context, deviceID string) (*alerts.Alert, error) {
	_ = ctx
	if s == nil {
		return nil, errors.New("alert store: not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stored := range s.data {
		if stored.DeviceID == deviceID && !stored.IsTerminal() {
			return stored.Clone(), nil
		}
	}
	return nil, alerts.ErrNotFound
}

// CompareAndUpdate implements the optimistic concurrency contract of
// alerts.Store. mutate runs outside the lock on a private copy.
func (s *AlertStore) CompareAndUpdate(ctx context.Context, id string, mutate func(*alerts.Alert) error) (*alerts.Alert, error) {
	_ = ctx
	if s == nil {
		return nil, errors.New("alert store: not initialized")
	}
	if mutate == nil {
		return nil, errors.New("alert store: nil mutation")
	}

	s.mu.RLock()
	stored := s.data[id]
	if stored == nil {
		s.mu.RUnlock()
		return nil, alerts.ErrNotFound
	}
	if stored.IsTerminal() {
		s.mu.RUnlock()
		return nil, alerts.ErrTerminal
	}
	working := stored.Clone()
	baseVersion := stored.Version
	s.mu.RUnlock()

	if err := mutate(working); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.data[id]
	if current == nil {
		return nil, alerts.ErrNotFound
	}
	if current.IsTerminal() {
		return nil, alerts.ErrTerminal
	}
	if current.Version != baseVersion {
		return nil, alerts.ErrConflict
	}
	working.Version = baseVersion + 1
	s.data[id] = working.Clone()
	return working, nil
}

// List returns alerts matching the filter, newest first.
func (s *AlertStore) List(ctx context.Context, filter alerts.Filter) ([]alerts.Alert, error) {
	_ = ctx
	if s == nil {
		return nil, errors.New("alert store: not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []alerts.Alert
	for _, stored := range s.data {
		if filter.TenantID != "" && stored.TenantID != filter.TenantID {
			continue
		}
		if filter.StationID != "" && stored.AssignedStationID != filter.StationID {
			continue
		}
		if filter.Status != "" && stored.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && stored.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !stored.CreatedAt.Before(filter.To) {
			continue
		}
		result = append(result, *stored.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
