package alerts

import (
	"context"
	"time"
)

// Filter narrows alert listings. Zero values are ignored. StationID
// matches the current assignee, not past escalation entries.
type Filter struct {
	TenantID  string
	StationID string
	Status    string
	From      time.Time
	To        time.Time
}

// Store is the authoritative record of alert state.
//
// CompareAndUpdate applies mutate to a copy of the current record and
// commits it only if the record did not change in between; it returns
// ErrConflict otherwise, ErrTerminal when the current status is already
// terminal, and ErrNotFound for unknown ids. An error returned by mutate
// aborts the update without a write. Updates to a single alert id are
// serialized; no ordering holds across different ids.
type Store interface {
	// Insert persists a new alert. It returns ErrDuplicateActive when a
	// non-terminal alert already exists for the same device.
	Insert(ctx context.Context, alert *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	FindActiveByDevice(ctx context.Context, deviceID string) (*Alert, error)
	CompareAndUpdate(ctx context.Context, id string, mutate func(*Alert) error) (*Alert, error)
	List(ctx context.Context, filter Filter) ([]Alert, error)
}
