package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	alertapp "firewatch-cloud/internal/alerts/application"
	alerts "firewatch-cloud/internal/alerts/domain"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	"firewatch-cloud/internal/observability/metrics"
)

// DefaultSampleInterval is how often a quiet device's readings are
// persisted. Fire readings are always persisted.
const DefaultSampleInterval = 5 * time.Minute

// AlertCreator opens alerts for confirmed detections.
type AlertCreator interface {
	Create(ctx context.Context, input alertapp.CreateInput) (*alerts.Alert, error)
}

// ReadingSink persists sampled readings.
type ReadingSink interface {
	Store(ctx context.Context, reading SensorReading) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// FeedHandler ingests sensor readings: it tracks device liveness,
// samples routine readings and opens alerts on fire detections.
type FeedHandler struct {
	devices        masterdata.DeviceRepository
	creator        AlertCreator
	sink           ReadingSink
	sampleInterval time.Duration
	clock          Clock
	logger         *log.Logger

	mu         sync.Mutex
	lastStored map[string]time.Time
}

// FeedOption configures the handler.
type FeedOption func(*FeedHandler)

// WithSink assigns a reading sink.
func WithSink(sink ReadingSink) FeedOption {
	return func(h *FeedHandler) {
		h.sink = sink
	}
}

// WithSampleInterval overrides the sampling interval.
func WithSampleInterval(interval time.Duration) FeedOption {
	return func(h *FeedHandler) {
		if interval > 0 {
			h.sampleInterval = interval
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) FeedOption {
	return func(h *FeedHandler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) FeedOption {
	return func(h *FeedHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewFeedHandler constructs a feed handler.
func NewFeedHandler(devices masterdata.DeviceRepository, creator AlertCreator, opts ...FeedOption) (*FeedHandler, error) {
	if devices == nil {
		return nil, errors.New("ingest: nil device repository")
	}
	if creator == nil {
		return nil, errors.New("ingest: nil alert creator")
	}
	h := &FeedHandler{
		devices:        devices,
		creator:        creator,
		sampleInterval: DefaultSampleInterval,
		clock:          systemClock{},
		logger:         log.Default(),
		lastStored:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type wireReading struct {
	DeviceID       string  `json:"id"`
	FireDetection  int     `json:"fireDetection"`
	Confidence     float64 `json:"confidence"`
	HumanDetection int     `json:"humanDetection"`
	TS             int64   `json:"timestamp"`
}

type feedResponse struct {
	Stored  bool   `json:"stored"`
	AlertID string `json:"alert_id,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// ServeHTTP handles POST /api/v1/ingest/readings.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, start, "read_body", "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var wire wireReading
	if err := json.Unmarshal(body, &wire); err != nil {
		h.fail(w, start, "invalid_json", "invalid json", http.StatusBadRequest)
		return
	}
	now := h.clock.Now().UTC()
	reading := SensorReading{
		DeviceID:       wire.DeviceID,
		FireDetection:  wire.FireDetection,
		Confidence:     wire.Confidence,
		HumanDetection: wire.HumanDetection,
		Timestamp:      now,
	}
	if wire.TS > 0 {
		reading.Timestamp = time.UnixMilli(wire.TS).UTC()
	}
	if err := reading.Validate(); err != nil {
		h.fail(w, start, "invalid_payload", err.Error(), http.StatusBadRequest)
		return
	}

	device, err := h.devices.Get(r.Context(), reading.DeviceID)
	if err != nil {
		h.fail(w, start, "device_lookup", "device lookup error", http.StatusInternalServerError)
		return
	}
	if device == nil || !device.Registered {
		h.fail(w, start, "unknown_device", "unknown device", http.StatusNotFound)
		return
	}

	if err := h.devices.MarkSeen(r.Context(), device.ID, now); err != nil {
		h.logger.Printf("ingest: mark seen %s: %v", device.ID, err)
	}
	if device.Status == masterdata.DeviceStatusOffline {
		if err := h.devices.SetStatus(r.Context(), device.ID, masterdata.DeviceStatusActive, now); err != nil {
			h.logger.Printf("ingest: recover %s: %v", device.ID, err)
		} else {
			h.logger.Printf("ingest: device %s back online", device.ID)
		}
	}

	resp := feedResponse{Stored: h.store(r.Context(), reading, now)}

	if reading.FireDetected() {
		alert, err := h.creator.Create(r.Context(), alertapp.CreateInput{
			DeviceID:      device.ID,
			TenantID:      device.TenantID,
			DangerLevel:   alerts.DangerScore(device.StaticDangerLevel, reading.Confidence, reading.HumanDetection),
			Confidence:    reading.Confidence,
			OccupantCount: reading.HumanDetection,
		})
		switch {
		case errors.Is(err, alerts.ErrNoCoverage):
			h.logger.Printf("ingest: fire on %s but no responder coverage", device.ID)
			resp.Warning = "no responder coverage"
		case err != nil:
			h.fail(w, start, "alert_create", "alert create error", http.StatusInternalServerError)
			return
		default:
			resp.AlertID = alert.ID
		}
	}

	metrics.ObserveIngest(metrics.IngestResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// store persists the reading when it is a fire reading or the device's
// sampling window has elapsed.
func (h *FeedHandler) store(ctx context.Context, reading SensorReading, now time.Time) bool {
	if h.sink == nil {
		return false
	}
	if !reading.FireDetected() {
		h.mu.Lock()
		last, ok := h.lastStored[reading.DeviceID]
		if ok && now.Sub(last) < h.sampleInterval {
			h.mu.Unlock()
			return false
		}
		h.lastStored[reading.DeviceID] = now
		h.mu.Unlock()
	}
	if err := h.sink.Store(ctx, reading); err != nil {
		h.logger.Printf("ingest: store reading %s: %v", reading.DeviceID, err)
		return false
	}
	return true
}

func (h *FeedHandler) fail(w http.ResponseWriter, start time.Time, reason, message string, code int) {
	metrics.IncIngestError(reason)
	metrics.ObserveIngest(metrics.IngestResultError, time.Since(start))
	http.Error(w, message, code)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
