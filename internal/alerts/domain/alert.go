package alerts

import (
	"errors"
	"time"
)

// Alert statuses.
const (
	StatusPending      = "pending"
	StatusAcknowledged = "acknowledged"
	StatusEnRoute      = "en_route"
	StatusArrived      = "arrived"
	StatusResolved     = "resolved"
	StatusFalseAlarm   = "false_alarm"
)

// Escalation entry responses.
const (
	ResponseAccepted = "accepted"
	ResponsePassed   = "passed"
	ResponseTimeout  = "timeout"
)

// EscalationEntry records one station assignment within an alert's history.
// An entry with an empty Response is "open": the station has been notified
// and has not yet responded. At most one entry is open at a time.
type EscalationEntry struct {
	StationID         string    `json:"station_id"`
	NotifiedAt        time.Time `json:"notified_at"`
	Response          string    `json:"response,omitempty"`
	RespondedAt       time.Time `json:"responded_at,omitempty"`
	DangerLevelAtTime float64   `json:"danger_level_at_time"`
}

// Alert is a tracked fire incident tied to one device.
type Alert struct {
	ID                string `json:"id"`
	DeviceID          string `json:"device_id"`
	TenantID          string `json:"tenant_id"`
	AssignedStationID string `json:"assigned_station_id"`
	Status            string `json:"status"`
	// DangerLevel only grows over the alert's lifetime.
	DangerLevel        float64 `json:"danger_level"`
	InitialDangerLevel float64 `json:"initial_danger_level"`
	Confidence         float64 `json:"confidence"`
	OccupantCount      int     `json:"occupant_count"`
	// ResponseTimeout is how long the assigned station has before the
	// alert escalates; recomputed whenever DangerLevel changes.
	ResponseTimeout   time.Duration     `json:"response_timeout"`
	EscalationHistory []EscalationEntry `json:"escalation_history"`
	// Stalled marks an alert whose escalation exhausted all stations.
	// It stays pending and needs operator intervention.
	Stalled         bool      `json:"stalled,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	// Version counts committed writes; the store's compare-and-update
	// uses it for optimistic concurrency.
	Version int64 `json:"version"`
}

// Validate checks alert invariants.
func (a Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert: empty id")
	}
	if a.DeviceID == "" {
		return errors.New("alert: empty device id")
	}
	if a.TenantID == "" {
		return errors.New("alert: empty tenant id")
	}
	if !ValidStatus(a.Status) {
		return errors.New("alert: invalid status")
	}
	if a.DangerLevel < 0 || a.DangerLevel > 100 {
		return errors.New("alert: danger level out of range")
	}
	if a.AssignedStationID == "" {
		return errors.New("alert: empty assigned station")
	}
	return nil
}

// ValidStatus reports whether value is a known alert status.
func ValidStatus(value string) bool {
	switch value {
	case StatusPending, StatusAcknowledged, StatusEnRoute, StatusArrived, StatusResolved, StatusFalseAlarm:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the alert reached a terminal status.
func (a Alert) IsTerminal() bool {
	return a.Status == StatusResolved || a.Status == StatusFalseAlarm
}

// OpenEntry returns a pointer into EscalationHistory for the single entry
// without a response, or nil when every entry is closed.
func (a *Alert) OpenEntry() *EscalationEntry {
	for i := range a.EscalationHistory {
		if a.EscalationHistory[i].Response == "" {
			return &a.EscalationHistory[i]
		}
	}
	return nil
}

// HasStation reports whether stationID appears anywhere in the history.
func (a Alert) HasStation(stationID string) bool {
	for _, entry := range a.EscalationHistory {
		if entry.StationID == stationID {
			return true
		}
	}
	return false
}

// CanTransition reports whether a responder may move the alert from its
// current status to next. Escalation and claim are handled separately;
// this covers the post-claim progression only.
func CanTransition(current, next string) bool {
	switch current {
	case StatusAcknowledged:
		return next == StatusEnRoute
	case StatusEnRoute:
		return next == StatusArrived
	case StatusArrived:
		return next == StatusResolved || next == StatusFalseAlarm
	default:
		return false
	}
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	clone := *a
	clone.EscalationHistory = make([]EscalationEntry, len(a.EscalationHistory))
	copy(clone.EscalationHistory, a.EscalationHistory)
	return &clone
}
