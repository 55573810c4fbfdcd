// Package watchdog marks devices offline when their sensor feed goes
// silent for longer than the configured threshold.
package watchdog

import (
	"context"
	"errors"
	"log"
	"time"

	masterdata "firewatch-cloud/internal/masterdata/domain"
	"firewatch-cloud/internal/observability/metrics"
)

const (
	// DefaultOfflineThreshold is how long a device may stay silent
	// before it is marked offline.
	DefaultOfflineThreshold = 2 * time.Minute

	// DefaultSweepInterval is how often the watchdog checks for
	// stale devices.
	DefaultSweepInterval = 30 * time.Second
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Watchdog sweeps the device registry and flags silent devices.
type Watchdog struct {
	devices   masterdata.DeviceRepository
	threshold time.Duration
	interval  time.Duration
	clock     Clock
	logger    *log.Logger
}

// Option configures the watchdog.
type Option func(*Watchdog)

// WithOfflineThreshold overrides the silence threshold.
func WithOfflineThreshold(threshold time.Duration) Option {
	return func(w *Watchdog) {
		if threshold > 0 {
			w.threshold = threshold
		}
	}
}

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(interval time.Duration) Option {
	return func(w *Watchdog) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(w *Watchdog) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watchdog) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New constructs a Watchdog.
func New(devices masterdata.DeviceRepository, opts ...Option) (*Watchdog, error) {
	if devices == nil {
		return nil, errors.New("watchdog: nil device repository")
	}
	w := &Watchdog{
		devices:   devices,
		threshold: DefaultOfflineThreshold,
		interval:  DefaultSweepInterval,
		clock:     systemClock{},
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run sweeps until the context is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	if w == nil {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Printf("watchdog sweep error: %v", err)
			}
		}
	}
}

// Sweep marks devices offline that have not reported within the
// threshold and returns the first repository error encountered.
func (w *Watchdog) Sweep(ctx context.Context) error {
	now := w.clock.Now().UTC()
	stale, err := w.devices.ListStaleActive(ctx, now.Add(-w.threshold))
	if err != nil {
		return err
	}
	marked := 0
	var firstErr error
	for _, device := range stale {
		if err := w.devices.SetStatus(ctx, device.ID, masterdata.DeviceStatusOffline, now); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			w.logger.Printf("watchdog: mark offline %s: %v", device.ID, err)
			continue
		}
		marked++
		w.logger.Printf("watchdog: device %s silent since %s, marked offline", device.ID, device.LastSeenAt.Format(time.RFC3339))
	}
	if marked > 0 {
		metrics.AddWatchdogOffline(marked)
	}
	return firstErr
}
