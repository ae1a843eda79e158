package alerts

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/drive-monitor/internal/config"
	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/internal/observability"
	"github.com/benmeehan/drive-monitor/pkg/sink"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrStoreFull is returned when the bounded alert store rejects a new
	// alert. Nothing is evicted; callers drain via Acknowledge/ClearAll.
	ErrStoreFull = errors.New("alert store is full")

	// ErrOutOfRange is returned for an Acknowledge index past the store.
	ErrOutOfRange = errors.New("alert index out of range")

	// ErrUnknownMetric is returned for threshold operations on an
	// undefined metric kind.
	ErrUnknownMetric = errors.New("unknown metric kind")
)

// AlertEngine evaluates device snapshots against per-metric thresholds and
// owns the bounded, append-only alert store.
//
// The threshold comparison is uniformly "value >= threshold * ratio" for
// every metric, including the ones where a low reading is the unhealthy
// direction (read/write speed, sector health). That matches the legacy
// behavior this engine reimplements; operators who need a different sense
// for those metrics can defuse them with SetThreshold.
type AlertEngine struct {
	mu         sync.Mutex
	store      []models.Alert
	capacity   int
	thresholds [models.MetricCount]float64
	dropped    uint64

	warningRatio  float64
	criticalRatio float64
	autoAlert     bool

	notifier sink.NotificationSink
	obs      *observability.Metrics
	logger   zerolog.Logger
}

// NewAlertEngine creates an engine with a store bounded to capacity alerts
// and thresholds initialized from the built-in nominal table.
func NewAlertEngine(capacity int, warningRatio, criticalRatio float64, autoAlert bool,
	notifier sink.NotificationSink, obs *observability.Metrics, logger zerolog.Logger) *AlertEngine {

	e := &AlertEngine{
		store:         make([]models.Alert, 0, capacity),
		capacity:      capacity,
		warningRatio:  warningRatio,
		criticalRatio: criticalRatio,
		autoAlert:     autoAlert,
		notifier:      notifier,
		obs:           obs,
		logger:        logger,
	}
	for _, metric := range models.AllMetrics {
		e.thresholds[metric] = metric.NominalThreshold()
	}
	return e
}

// Evaluate checks the snapshot's current values against the thresholds and
// returns the alerts to raise, at most one per enabled metric, critical
// winning over warning. It does not mutate the store.
func (e *AlertEngine) Evaluate(snapshot models.DeviceHealth, enabled config.MetricFlags) []models.Alert {
	e.mu.Lock()
	thresholds := e.thresholds
	e.mu.Unlock()

	var raised []models.Alert
	for _, metric := range models.AllMetrics {
		if !enabled.Enabled(metric) {
			continue
		}
		threshold := thresholds[metric]
		value := snapshot.Current[metric]

		var critical bool
		switch {
		case value >= threshold*e.criticalRatio:
			critical = true
		case value >= threshold*e.warningRatio:
			critical = false
		default:
			continue
		}

		message := fmt.Sprintf("Warning threshold exceeded: %s %.2f %s", metric.Name(), value, metric.Unit())
		if critical {
			message = fmt.Sprintf("Critical threshold exceeded: %s %.2f %s", metric.Name(), value, metric.Unit())
		}
		raised = append(raised, models.Alert{
			ID:             uuid.New().String(),
			DeviceID:       snapshot.DeviceID,
			Metric:         metric,
			CurrentValue:   value,
			ThresholdValue: threshold,
			Message:        message,
			Timestamp:      time.Now().UTC(),
			IsCritical:     critical,
		})
	}
	return raised
}

// Record appends the alert to the bounded store and, when auto-alert is on,
// forwards it to the notification sink. The forward is fire-and-forget: a
// sink failure is logged and never fails the record. Returns ErrStoreFull
// when the store is at capacity; the alert is dropped, not queued.
func (e *AlertEngine) Record(alert models.Alert) error {
	e.mu.Lock()
	if len(e.store) >= e.capacity {
		e.dropped++
		e.mu.Unlock()
		e.obs.AlertDropped()
		e.logger.Warn().Str("device_id", alert.DeviceID).Str("metric", alert.Metric.Name()).
			Msg("Alert store full, dropping alert")
		return ErrStoreFull
	}
	e.store = append(e.store, alert)
	e.mu.Unlock()

	e.obs.AlertRaised(alert.Severity())
	e.logger.Info().Str("device_id", alert.DeviceID).Str("metric", alert.Metric.Name()).
		Str("severity", alert.Severity()).Float64("value", alert.CurrentValue).
		Msg("Alert created")

	// Notify outside the lock so a slow sink never blocks callers.
	if e.autoAlert && e.notifier != nil {
		if err := e.notifier.Notify(alert); err != nil {
			e.logger.Error().Err(err).Str("device_id", alert.DeviceID).Msg("Failed to deliver alert notification")
		}
	}
	return nil
}

// Alerts returns a copy of the alert store.
func (e *AlertEngine) Alerts() []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Alert, len(e.store))
	copy(out, e.store)
	return out
}

// Acknowledge marks the alert at index as seen without removing it.
func (e *AlertEngine) Acknowledge(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.store) {
		return ErrOutOfRange
	}
	e.store[index].IsAcknowledged = true
	return nil
}

// ClearAll empties the store. Per-device warning/error counters live on the
// device records and are unaffected.
func (e *AlertEngine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = e.store[:0]
}

// Restore appends previously exported alerts without notifying, up to the
// store capacity. It returns how many alerts fit.
func (e *AlertEngine) Restore(restored []models.Alert) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	fit := 0
	for _, alert := range restored {
		if len(e.store) >= e.capacity {
			break
		}
		e.store = append(e.store, alert)
		fit++
	}
	return fit
}

// Dropped reports how many alerts the full store has rejected.
func (e *AlertEngine) Dropped() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// SetThreshold overrides the threshold the ratios are applied against.
func (e *AlertEngine) SetThreshold(metric models.MetricKind, threshold float64) error {
	if !metric.Valid() {
		return ErrUnknownMetric
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds[metric] = threshold
	return nil
}

// Threshold returns the active threshold for the metric.
func (e *AlertEngine) Threshold(metric models.MetricKind) (float64, error) {
	if !metric.Valid() {
		return 0, ErrUnknownMetric
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds[metric], nil
}
