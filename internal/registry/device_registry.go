package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/internal/stats"
	"github.com/rs/zerolog"
)

var (
	// ErrCapacityExceeded is returned when a first-time Start would push the
	// registry past its configured device capacity.
	ErrCapacityExceeded = errors.New("device registry is at capacity")

	// ErrDeviceNotFound is returned for operations on an unregistered device id.
	ErrDeviceNotFound = errors.New("device is not registered")
)

// DeviceRegistry is the bounded collection of monitored drives. It owns every
// DeviceHealth record; callers only ever see copies. A single RWMutex guards
// the map so the sampler and arbitrary caller goroutines never race.
type DeviceRegistry struct {
	mu       sync.RWMutex
	devices  map[string]*models.DeviceHealth
	order    []string
	capacity int
	logger   zerolog.Logger
}

// NewDeviceRegistry creates an empty registry bounded to capacity devices.
func NewDeviceRegistry(capacity int, logger zerolog.Logger) *DeviceRegistry {
	return &DeviceRegistry{
		devices:  make(map[string]*models.DeviceHealth, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Start registers the device and arms monitoring for it. Calling Start on an
// already-registered device is idempotent: it re-arms monitoring and keeps the
// accumulated statistics, so pause/resume never resets history.
func (r *DeviceRegistry) Start(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.devices[deviceID]; ok {
		rec.IsMonitoring = true
		return nil
	}
	if len(r.devices) >= r.capacity {
		r.logger.Warn().Str("device_id", deviceID).Int("capacity", r.capacity).
			Msg("Maximum number of monitored devices reached")
		return ErrCapacityExceeded
	}

	r.devices[deviceID] = models.NewDeviceHealth(deviceID)
	r.order = append(r.order, deviceID)
	r.logger.Info().Str("device_id", deviceID).Msg("Started monitoring device")
	return nil
}

// StartAll re-arms monitoring on every registered device.
func (r *DeviceRegistry) StartAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.devices {
		rec.IsMonitoring = true
	}
}

// Stop disarms monitoring for one device. The record and its statistics are
// kept; only the monitoring flag changes.
func (r *DeviceRegistry) Stop(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	rec.IsMonitoring = false
	r.logger.Info().Str("device_id", deviceID).Msg("Stopped monitoring device")
	return nil
}

// StopAll disarms monitoring on every registered device.
func (r *DeviceRegistry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.devices {
		rec.IsMonitoring = false
	}
}

// Remove deletes the device record entirely, freeing a capacity slot.
func (r *DeviceRegistry) Remove(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[deviceID]; !ok {
		return ErrDeviceNotFound
	}
	delete(r.devices, deviceID)
	for i, id := range r.order {
		if id == deviceID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// IsMonitoring reports whether the device is registered and armed.
func (r *DeviceRegistry) IsMonitoring(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.devices[deviceID]
	return ok && rec.IsMonitoring
}

// Len returns the number of registered devices, monitoring or not.
func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ActiveDevices returns the ids of all devices currently armed for
// monitoring, in registration order.
func (r *DeviceRegistry) ActiveDevices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	active := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if rec, ok := r.devices[id]; ok && rec.IsMonitoring {
			active = append(active, id)
		}
	}
	return active
}

// Snapshot returns a copy of the device record, never a live reference.
func (r *DeviceRegistry) Snapshot(deviceID string) (models.DeviceHealth, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.devices[deviceID]
	if !ok {
		return models.DeviceHealth{}, ErrDeviceNotFound
	}
	return rec.Clone(), nil
}

// Snapshots returns copies of every device record in registration order.
func (r *DeviceRegistry) Snapshots() []models.DeviceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DeviceHealth, 0, len(r.order))
	for _, id := range r.order {
		if rec, ok := r.devices[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Commit folds one tick's samples into the device record under a single lock
// acquisition: every sampled metric is applied, then the shared counter
// advances once. It returns the post-tick snapshot for alert evaluation.
func (r *DeviceRegistry) Commit(deviceID string, samples map[models.MetricKind]float64, now time.Time) (models.DeviceHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[deviceID]
	if !ok {
		return models.DeviceHealth{}, ErrDeviceNotFound
	}
	for _, metric := range models.AllMetrics {
		if sample, ok := samples[metric]; ok {
			stats.Apply(rec, metric, sample)
		}
	}
	stats.Advance(rec, now)
	return rec.Clone(), nil
}

// RecordAlertCounts adds raised-alert tallies to the device record. The
// counters only ever grow; acknowledging or clearing alerts never touches them.
func (r *DeviceRegistry) RecordAlertCounts(deviceID string, warnings, criticals uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.devices[deviceID]; ok {
		rec.WarningCount += warnings
		rec.ErrorCount += criticals
	}
}

// Restore inserts a previously exported record, subject to the capacity
// bound. Restored devices come back disarmed; callers Start them explicitly.
func (r *DeviceRegistry) Restore(snapshot models.DeviceHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[snapshot.DeviceID]; !ok {
		if len(r.devices) >= r.capacity {
			return ErrCapacityExceeded
		}
		r.order = append(r.order, snapshot.DeviceID)
	}
	rec := snapshot
	rec.IsMonitoring = false
	r.devices[snapshot.DeviceID] = &rec
	return nil
}
