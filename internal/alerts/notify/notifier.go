package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	alertapp "firewatch-cloud/internal/alerts/application"
	alerts "firewatch-cloud/internal/alerts/domain"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	"firewatch-cloud/internal/observability/metrics"
	stations "firewatch-cloud/internal/stations/domain"
)

// StationReader loads station metadata.
type StationReader interface {
	Get(ctx context.Context, id string) (*stations.Station, error)
}

// TenantReader loads tenant metadata.
type TenantReader interface {
	Get(ctx context.Context, id string) (*masterdata.Tenant, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders alert events and sends them through a channel, with
// an SMS to the assigned station for dispatch events.
type Notifier struct {
	stations     StationReader
	tenants      TenantReader
	channel      Channel
	channelName  string
	sms          SMSSender
	template     *Template
	clock        Clock
	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same alert and event.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithSMS assigns an SMS sender for station dispatch messages.
func WithSMS(sender SMSSender) Option {
	return func(n *Notifier) {
		n.sms = sender
	}
}

// WithChannelName labels the channel in metrics.
func WithChannelName(name string) Option {
	return func(n *Notifier) {
		if name != "" {
			n.channelName = name
		}
	}
}

// NewNotifier constructs an alert notifier.
func NewNotifier(stationReader StationReader, tenantReader TenantReader, channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alert notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		stations:    stationReader,
		tenants:     tenantReader,
		channel:     channel,
		channelName: "webhook",
		template:    template,
		clock:       systemClock{},
		sent:        make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements AlertNotifier.
func (n *Notifier) Notify(ctx context.Context, event alertapp.AlertEvent) {
	if n == nil || n.channel == nil {
		return
	}
	tenant, station := n.lookup(ctx, event.Alert)
	content := n.dispatch(ctx, event.Type, event.Alert, tenant, station)

	// The freshly assigned station gets a direct SMS so dispatch does
	// not depend on someone watching a dashboard.
	switch event.Type {
	case alertapp.EventCreated, alertapp.EventEscalated:
		n.sendSMS(ctx, station, content)
	}
}

func (n *Notifier) lookup(ctx context.Context, alert alerts.Alert) (*masterdata.Tenant, *stations.Station) {
	var tenant *masterdata.Tenant
	if n.tenants != nil {
		t, err := n.tenants.Get(ctx, alert.TenantID)
		if err == nil {
			tenant = t
		}
	}
	var station *stations.Station
	if n.stations != nil {
		st, err := n.stations.Get(ctx, alert.AssignedStationID)
		if err == nil {
			station = st
		}
	}
	return tenant, station
}

func (n *Notifier) dispatch(ctx context.Context, eventType string, alert alerts.Alert, tenant *masterdata.Tenant, station *stations.Station) string {
	data := buildTemplateData(eventType, alert, tenant, station)
	content, err := n.template.Render(data)
	if err != nil {
		return ""
	}
	if !n.shouldSend(alert.ID, eventType, content) {
		return content
	}
	if err := n.channel.Send(ctx, content); err != nil {
		metrics.IncNotification(n.channelName, metrics.ResultError)
		return content
	}
	metrics.IncNotification(n.channelName, metrics.ResultSuccess)
	n.markSent(alert.ID, eventType, content)
	return content
}

func (n *Notifier) sendSMS(ctx context.Context, station *stations.Station, content string) {
	if n.sms == nil || station == nil || station.ContactPhone == "" || content == "" {
		return
	}
	if err := n.sms.SendSMS(ctx, station.ContactPhone, content); err != nil {
		metrics.IncNotification("sms", metrics.ResultError)
		return
	}
	metrics.IncNotification("sms", metrics.ResultSuccess)
}

func buildTemplateData(eventType string, alert alerts.Alert, tenant *masterdata.Tenant, station *stations.Station) TemplateData {
	tenantName := alert.TenantID
	address := ""
	if tenant != nil {
		if tenant.Name != "" {
			tenantName = tenant.Name
		}
		address = tenant.Location.Address
	}
	stationName := alert.AssignedStationID
	if station != nil && station.Name != "" {
		stationName = station.Name
	}
	return TemplateData{
		Event:          eventType,
		EventLabel:     eventLabel(eventType),
		AlertID:        alert.ID,
		DeviceID:       alert.DeviceID,
		Tenant:         tenantName,
		Address:        address,
		Station:        stationName,
		StationID:      alert.AssignedStationID,
		DangerLevel:    fmt.Sprintf("%.0f", alert.DangerLevel),
		Status:         statusLabel(alert.Status),
		StatusCode:     alert.Status,
		ResponseWindow: alert.ResponseTimeout.String(),
		Suggestion:     suggestionFor(eventType, alert),
	}
}

func statusLabel(status string) string {
	switch status {
	case alerts.StatusPending:
		return "awaiting response"
	case alerts.StatusAcknowledged:
		return "acknowledged"
	case alerts.StatusEnRoute:
		return "crew en route"
	case alerts.StatusArrived:
		return "crew on site"
	case alerts.StatusResolved:
		return "resolved"
	case alerts.StatusFalseAlarm:
		return "false alarm"
	default:
		return status
	}
}

func eventLabel(event string) string {
	switch event {
	case alertapp.EventCreated:
		return "Dispatched"
	case alertapp.EventEscalated:
		return "Escalated"
	case alertapp.EventClaimed:
		return "Claimed"
	case alertapp.EventStatusChanged:
		return "Updated"
	case alertapp.EventStalled:
		return "Unanswered"
	default:
		return event
	}
}

func suggestionFor(eventType string, alert alerts.Alert) string {
	if eventType == alertapp.EventStalled {
		return "No station left to notify; dispatch a crew manually."
	}
	switch {
	case alert.DangerLevel >= 61:
		return "Respond immediately; high danger site."
	case alert.DangerLevel >= 31:
		return "Confirm the detection and prepare to respond."
	default:
		return "Verify the site condition."
	}
}

func (n *Notifier) shouldSend(alertID, eventType, content string) bool {
	if n == nil {
		return false
	}
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	key := notificationKey(alertID, eventType)
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(alertID, eventType, content string) {
	if n == nil {
		return
	}
	key := notificationKey(alertID, eventType)
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func notificationKey(alertID, eventType string) string {
	return alertID + "|" + eventType
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
