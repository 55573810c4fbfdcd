package application

import (
	"context"
	"errors"
	"log"
	"time"

	alerts "firewatch-cloud/internal/alerts/domain"
	"firewatch-cloud/internal/alerts/scheduler"
	"firewatch-cloud/internal/masterdata/domain"
	"firewatch-cloud/internal/observability/metrics"
	"firewatch-cloud/internal/stations/directory"
)

// AlertNotifier publishes alert lifecycle events.
type AlertNotifier interface {
	Notify(ctx context.Context, event AlertEvent)
}

// AlertEvent represents a lifecycle update.
type AlertEvent struct {
	Type  string       `json:"type"`
	Alert alerts.Alert `json:"alert"`
}

// Lifecycle event types.
const (
	EventCreated       = "created"
	EventEscalated     = "escalated"
	EventClaimed       = "claimed"
	EventStatusChanged = "status_changed"
	EventStalled       = "stalled"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// CreateInput carries a confirmed fire detection into the engine.
type CreateInput struct {
	DeviceID      string
	TenantID      string
	DangerLevel   float64
	Confidence    float64
	OccupantCount int
}

// Service drives the alert lifecycle: creation, nearest-station
// assignment, timeout escalation, claim arbitration and resolution.
type Service struct {
	store     alerts.Store
	tenants   masterdata.TenantRepository
	directory *directory.Directory
	scheduler *scheduler.Scheduler
	notifier  AlertNotifier
	clock     Clock
	logger    *log.Logger
	cfg       Config
}

// ServiceOption customizes the alert service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier AlertNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs an alert lifecycle service.
func NewService(store alerts.Store, tenants masterdata.TenantRepository, dir *directory.Directory, sched *scheduler.Scheduler, cfg Config, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("alerts: nil store")
	}
	if tenants == nil {
		return nil, errors.New("alerts: nil tenant repository")
	}
	if dir == nil {
		return nil, errors.New("alerts: nil station directory")
	}
	if sched == nil {
		return nil, errors.New("alerts: nil scheduler")
	}
	if cfg.EscalationStep <= 0 {
		cfg.EscalationStep = 20
	}
	if cfg.UpdateRetries < 1 {
		cfg.UpdateRetries = 3
	}
	zero := alerts.TimeoutPolicy{}
	if cfg.Timeouts == zero {
		cfg.Timeouts = alerts.DefaultTimeoutPolicy()
	}
	service := &Service{
		store:     store,
		tenants:   tenants,
		directory: dir,
		scheduler: sched,
		cfg:       cfg,
		clock:     systemClock{},
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create opens an alert for a confirmed detection and assigns the
// nearest active station. A device with a non-terminal alert keeps it:
// the existing alert is returned instead of a new one.
func (s *Service) Create(ctx context.Context, input CreateInput) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if input.DeviceID == "" || input.TenantID == "" {
		return nil, errors.New("alerts: missing device/tenant")
	}
	if input.DangerLevel < 0 || input.DangerLevel > 100 {
		return nil, errors.New("alerts: danger level out of range")
	}

	if existing, err := s.store.FindActiveByDevice(ctx, input.DeviceID); err == nil {
		return existing, nil
	} else if !errors.Is(err, alerts.ErrNotFound) {
		return nil, err
	}

	tenant, err := s.tenants.Get(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, errors.New("alerts: unknown tenant " + input.TenantID)
	}

	candidates, err := s.directory.Nearest(ctx, tenant.Location, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, alerts.ErrNoCoverage
	}
	station := candidates[0]

	now := s.clock.Now().UTC()
	alert := &alerts.Alert{
		ID:                 alerts.NewID(),
		DeviceID:           input.DeviceID,
		TenantID:           input.TenantID,
		AssignedStationID:  station.ID,
		Status:             alerts.StatusPending,
		DangerLevel:        input.DangerLevel,
		InitialDangerLevel: input.DangerLevel,
		Confidence:         input.Confidence,
		OccupantCount:      input.OccupantCount,
		ResponseTimeout:    s.cfg.Timeouts.For(input.DangerLevel),
		EscalationHistory: []alerts.EscalationEntry{{
			StationID:         station.ID,
			NotifiedAt:        now,
			DangerLevelAtTime: input.DangerLevel,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, alert); err != nil {
		if errors.Is(err, alerts.ErrDuplicateActive) {
			// Lost a creation race for the same device.
			return s.store.FindActiveByDevice(ctx, input.DeviceID)
		}
		return nil, err
	}

	s.armTimeout(alert)
	s.notify(ctx, EventCreated, *alert)
	return alert, nil
}

// Escalate moves a pending alert to the next nearest station after the
// current assignee failed to respond. The open history entry closes as
// a timeout, the danger level steps up, and when no station is left the
// alert stalls for operator intervention. Non-pending alerts are left
// untouched.
func (s *Service) Escalate(ctx context.Context, id string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}

	for attempt := 0; attempt < s.cfg.UpdateRetries; attempt++ {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != alerts.StatusPending {
			return current, nil
		}

		tenant, err := s.tenants.Get(ctx, current.TenantID)
		if err != nil {
			return nil, err
		}
		if tenant == nil {
			return nil, errors.New("alerts: unknown tenant " + current.TenantID)
		}
		visited := make(map[string]struct{}, len(current.EscalationHistory))
		for _, entry := range current.EscalationHistory {
			visited[entry.StationID] = struct{}{}
		}
		candidates, err := s.directory.Nearest(ctx, tenant.Location, visited, 1)
		if err != nil {
			return nil, err
		}

		baseVersion := current.Version
		now := s.clock.Now().UTC()
		updated, err := s.store.CompareAndUpdate(ctx, id, func(a *alerts.Alert) error {
			if a.Version != baseVersion {
				// The candidate search ran against a stale snapshot.
				return alerts.ErrConflict
			}
			if a.Status != alerts.StatusPending {
				return alerts.ErrNotPending
			}
			if open := a.OpenEntry(); open != nil {
				open.Response = alerts.ResponseTimeout
				open.RespondedAt = now
			}
			a.DangerLevel += s.cfg.EscalationStep
			if a.DangerLevel > 100 {
				a.DangerLevel = 100
			}
			a.ResponseTimeout = s.cfg.Timeouts.For(a.DangerLevel)
			if len(candidates) == 0 {
				a.Stalled = true
				return nil
			}
			a.Stalled = false
			a.AssignedStationID = candidates[0].ID
			a.EscalationHistory = append(a.EscalationHistory, alerts.EscalationEntry{
				StationID:         candidates[0].ID,
				NotifiedAt:        now,
				DangerLevelAtTime: a.DangerLevel,
			})
			return nil
		})
		if errors.Is(err, alerts.ErrConflict) {
			continue
		}
		if errors.Is(err, alerts.ErrNotPending) || errors.Is(err, alerts.ErrTerminal) {
			return s.store.Get(ctx, id)
		}
		if err != nil {
			return nil, err
		}

		if updated.Stalled {
			s.scheduler.Cancel(id)
			metrics.IncEscalation(metrics.EscalationOutcomeStalled)
			s.notify(ctx, EventStalled, *updated)
			return updated, nil
		}
		s.armTimeout(updated)
		metrics.IncEscalation(metrics.EscalationOutcomeAssigned)
		s.notify(ctx, EventEscalated, *updated)
		return updated, nil
	}
	return nil, alerts.ErrContention
}

// Claim accepts an alert on behalf of a station. Only the station
// holding the open assignment may claim; stations whose turn has passed
// get ErrTooLate, stations never notified get ErrNotAssigned.
func (s *Service) Claim(ctx context.Context, id, stationID string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if stationID == "" {
		return nil, errors.New("alerts: empty station id")
	}

	updated, err := s.update(ctx, id, func(a *alerts.Alert) error {
		if a.Status != alerts.StatusPending {
			return alerts.ErrNotPending
		}
		if !a.HasStation(stationID) {
			return alerts.ErrNotAssigned
		}
		open := a.OpenEntry()
		if open == nil || open.StationID != stationID {
			return alerts.ErrTooLate
		}
		open.Response = alerts.ResponseAccepted
		open.RespondedAt = s.clock.Now().UTC()
		a.Status = alerts.StatusAcknowledged
		a.AssignedStationID = stationID
		a.Stalled = false
		return nil
	})
	if err != nil {
		metrics.IncClaim(claimResult(err))
		return nil, err
	}

	s.scheduler.Cancel(id)
	metrics.IncClaim(metrics.ClaimResultAccepted)
	s.notify(ctx, EventClaimed, *updated)
	return updated, nil
}

// Pass lets the currently assigned station decline a pending alert.
// The open entry closes as passed and escalation runs immediately.
func (s *Service) Pass(ctx context.Context, id, stationID string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if stationID == "" {
		return nil, errors.New("alerts: empty station id")
	}

	_, err := s.update(ctx, id, func(a *alerts.Alert) error {
		if a.Status != alerts.StatusPending {
			return alerts.ErrNotPending
		}
		open := a.OpenEntry()
		if open == nil || open.StationID != stationID {
			return alerts.ErrNotAssignee
		}
		open.Response = alerts.ResponsePassed
		open.RespondedAt = s.clock.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scheduler.Cancel(id)
	return s.Escalate(ctx, id)
}

// AdvanceStatus moves a claimed alert along the responder progression
// (en_route, arrived, then resolved or false_alarm). Only the assigned
// station may advance; terminal transitions record notes and time.
func (s *Service) AdvanceStatus(ctx context.Context, id, stationID, next, notes string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if !alerts.ValidStatus(next) {
		return nil, alerts.ErrInvalidTransition
	}

	updated, err := s.update(ctx, id, func(a *alerts.Alert) error {
		if a.AssignedStationID != stationID {
			return alerts.ErrNotAssignee
		}
		if !alerts.CanTransition(a.Status, next) {
			return alerts.ErrInvalidTransition
		}
		a.Status = next
		if a.IsTerminal() {
			a.ResolvedAt = s.clock.Now().UTC()
			a.ResolutionNotes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.IsTerminal() {
		s.scheduler.Cancel(id)
	}
	s.notify(ctx, EventStatusChanged, *updated)
	return updated, nil
}

// Get returns one alert.
func (s *Service) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	return s.store.Get(ctx, id)
}

// List returns alerts matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter alerts.Filter) ([]alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	return s.store.List(ctx, filter)
}

// ResumeTimers re-arms escalation timers for pending alerts after a
// restart. Deadlines already in the past escalate immediately.
func (s *Service) ResumeTimers(ctx context.Context) error {
	if s == nil {
		return errors.New("alerts: nil service")
	}
	pending, err := s.store.List(ctx, alerts.Filter{Status: alerts.StatusPending})
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	for i := range pending {
		alert := pending[i]
		open := alert.OpenEntry()
		if alert.Stalled || open == nil {
			continue
		}
		delay := open.NotifiedAt.Add(alert.ResponseTimeout).Sub(now)
		if delay < 0 {
			delay = 0
		}
		s.armWithDelay(alert.ID, delay)
	}
	return nil
}

func (s *Service) armTimeout(alert *alerts.Alert) {
	s.armWithDelay(alert.ID, alert.ResponseTimeout)
}

func (s *Service) armWithDelay(id string, delay time.Duration) {
	s.scheduler.Arm(id, delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Escalate(ctx, id); err != nil {
			s.logger.Printf("alerts: escalation of %s failed: %v", id, err)
		}
	})
}

// update runs mutate through the store's compare-and-update, retrying
// lost races a bounded number of times before giving up with
// ErrContention.
func (s *Service) update(ctx context.Context, id string, mutate func(*alerts.Alert) error) (*alerts.Alert, error) {
	for attempt := 0; attempt < s.cfg.UpdateRetries; attempt++ {
		updated, err := s.store.CompareAndUpdate(ctx, id, mutate)
		if errors.Is(err, alerts.ErrConflict) {
			continue
		}
		return updated, err
	}
	return nil, alerts.ErrContention
}

func (s *Service) notify(ctx context.Context, eventType string, alert alerts.Alert) {
	if s == nil {
		return
	}
	metrics.IncAlertEvent(eventType)
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, AlertEvent{Type: eventType, Alert: alert})
}

func claimResult(err error) string {
	switch {
	case errors.Is(err, alerts.ErrNotPending):
		return metrics.ClaimResultConflict
	case errors.Is(err, alerts.ErrTooLate):
		return metrics.ClaimResultTooLate
	default:
		return metrics.ClaimResultRejected
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
