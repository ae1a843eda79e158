// Package monitor is the public surface of the drive health engine. A
// Monitor owns the device registry, the alert engine and the background
// sampling scheduler; all caller access to shared state goes through it and
// returns copies, never live references.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/drive-monitor/internal/alerts"
	"github.com/benmeehan/drive-monitor/internal/config"
	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/internal/observability"
	"github.com/benmeehan/drive-monitor/internal/registry"
	"github.com/benmeehan/drive-monitor/internal/utils"
	"github.com/benmeehan/drive-monitor/pkg/file"
	"github.com/benmeehan/drive-monitor/pkg/sink"
	"github.com/benmeehan/drive-monitor/pkg/source"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyShutdown is returned when a monitor is used after Shutdown.
	ErrAlreadyShutdown = errors.New("monitor is already shut down")

	// ErrShutdownTimeout is returned when the scheduler goroutine did not
	// exit within the join bound. Shutdown proceeds anyway; the error makes
	// the leak visible instead of silent.
	ErrShutdownTimeout = errors.New("timed out waiting for scheduler to stop")
)

const samplingWorkers = 4

// Monitor coordinates sampling, statistics and alerting for a bounded set of
// drives. Construct it with NewMonitor and dispose of it with Shutdown.
type Monitor struct {
	cfg        *config.Config
	source     source.MetricSource
	logSink    sink.LogSink
	fileClient file.FileOperations
	obs        *observability.Metrics
	logger     zerolog.Logger

	registry   *registry.DeviceRegistry
	engine     *alerts.AlertEngine
	workerPool *utils.SamplingPool

	// Per-device count of failed source samples, kept outside the registry
	// lock so queries never contend with the sampler.
	sourceFailures cmap.ConcurrentMap[string, uint64]

	sched *scheduler
}

// NewMonitor wires up a monitor from its collaborators. notifier, logSink,
// fileClient and obs may be nil; the corresponding features are disabled.
func NewMonitor(cfg *config.Config, metricSource source.MetricSource, notifier sink.NotificationSink,
	logSink sink.LogSink, fileClient file.FileOperations, obs *observability.Metrics,
	logger zerolog.Logger) *Monitor {

	alertCapacity := cfg.Monitor.MaxDevices * models.MetricCount

	m := &Monitor{
		cfg:        cfg,
		source:     metricSource,
		logSink:    logSink,
		fileClient: fileClient,
		obs:        obs,
		logger:     logger,
		registry:   registry.NewDeviceRegistry(cfg.Monitor.MaxDevices, logger),
		engine: alerts.NewAlertEngine(alertCapacity, cfg.Monitor.WarningRatio,
			cfg.Monitor.CriticalRatio, cfg.Monitor.AutoAlert, notifier, obs, logger),
		workerPool:     utils.NewSamplingPool(samplingWorkers),
		sourceFailures: cmap.New[uint64](),
	}
	m.sched = newScheduler(m, logger)
	return m
}

// Start registers the device and arms monitoring for it, lazily spinning up
// the background sampling loop on the first armed device. Starting an
// already-monitored device is idempotent and keeps its history.
func (m *Monitor) Start(deviceID string) error {
	if m.sched.isShutdown() {
		return ErrAlreadyShutdown
	}
	if err := m.registry.Start(deviceID); err != nil {
		return err
	}
	m.sched.ensureRunning()
	return nil
}

// StartAll re-arms monitoring for every registered device.
func (m *Monitor) StartAll() error {
	if m.sched.isShutdown() {
		return ErrAlreadyShutdown
	}
	m.registry.StartAll()
	if len(m.registry.ActiveDevices()) > 0 {
		m.sched.ensureRunning()
	}
	return nil
}

// Stop disarms monitoring for one device. Its statistics are preserved and
// the sampling loop keeps running for the others; the device drops out of
// sampling no later than the next tick.
func (m *Monitor) Stop(deviceID string) error {
	return m.registry.Stop(deviceID)
}

// StopAll disarms every device and winds down the sampling loop, waiting up
// to the join bound for it to exit.
func (m *Monitor) StopAll() error {
	m.registry.StopAll()
	return m.sched.stop()
}

// Shutdown stops all monitoring and releases the worker pool, waiting at
// most one join bound for the scheduler and one for the workers. A worker
// stuck inside the metric source past the bound is abandoned rather than
// waited on. The monitor must not be started again afterwards.
func (m *Monitor) Shutdown() error {
	if !m.sched.markShutdown() {
		return ErrAlreadyShutdown
	}
	m.registry.StopAll()
	err := m.sched.stop()

	poolWait := joinTimeout
	if err != nil {
		// The scheduler is already known stuck; don't wait out a second
		// bound on workers sharing its hang.
		poolWait = 0
	}
	if !m.workerPool.Shutdown(poolWait) && err == nil {
		err = ErrShutdownTimeout
	}

	m.logger.Info().Msg("Monitor shut down")
	return err
}

// IsMonitoring reports whether the device is registered and armed.
func (m *Monitor) IsMonitoring(deviceID string) bool {
	return m.registry.IsMonitoring(deviceID)
}

// Health returns a copy of the device's health record.
func (m *Monitor) Health(deviceID string) (models.DeviceHealth, error) {
	return m.registry.Snapshot(deviceID)
}

// HealthAll returns copies of every device record.
func (m *Monitor) HealthAll() []models.DeviceHealth {
	return m.registry.Snapshots()
}

// Remove deletes a device record entirely, freeing a registry slot.
func (m *Monitor) Remove(deviceID string) error {
	return m.registry.Remove(deviceID)
}

// Alerts returns a copy of the alert store.
func (m *Monitor) Alerts() []models.Alert {
	return m.engine.Alerts()
}

// Acknowledge marks the alert at index as seen.
func (m *Monitor) Acknowledge(index int) error {
	return m.engine.Acknowledge(index)
}

// ClearAlerts empties the alert store. Per-device warning/error counters are
// unaffected.
func (m *Monitor) ClearAlerts() {
	m.engine.ClearAll()
}

// DroppedAlerts reports how many alerts were rejected by the full store.
func (m *Monitor) DroppedAlerts() uint64 {
	return m.engine.Dropped()
}

// SetThreshold overrides the nominal threshold for a metric.
func (m *Monitor) SetThreshold(metric models.MetricKind, threshold float64) error {
	return m.engine.SetThreshold(metric, threshold)
}

// Threshold returns the active threshold for a metric.
func (m *Monitor) Threshold(metric models.MetricKind) (float64, error) {
	return m.engine.Threshold(metric)
}

// SourceFailures reports how many metric samples have failed for the device.
func (m *Monitor) SourceFailures(deviceID string) uint64 {
	if n, ok := m.sourceFailures.Get(deviceID); ok {
		return n
	}
	return 0
}

func (m *Monitor) noteSourceFailure(deviceID string) {
	m.sourceFailures.Upsert(deviceID, 1, func(exists bool, current, insert uint64) uint64 {
		if exists {
			return current + insert
		}
		return insert
	})
}

// exportData is the JSON document Export writes and Import reads.
type exportData struct {
	ExportedAt time.Time             `json:"exported_at"`
	Devices    []models.DeviceHealth `json:"devices"`
	Alerts     []models.Alert        `json:"alerts"`
}

// Export writes every device record and the alert store to a JSON file.
func (m *Monitor) Export(filePath string) error {
	if m.fileClient == nil {
		return errors.New("no file client configured")
	}
	return m.fileClient.WriteJsonFile(filePath, exportData{
		ExportedAt: time.Now().UTC(),
		Devices:    m.registry.Snapshots(),
		Alerts:     m.engine.Alerts(),
	})
}

// Import restores device records and alerts from a previous Export. Devices
// come back disarmed; records past the registry or alert store capacity are
// skipped and reported in the returned error.
func (m *Monitor) Import(filePath string) error {
	if m.fileClient == nil {
		return errors.New("no file client configured")
	}
	var data exportData
	if err := m.fileClient.ReadJsonFile(filePath, &data); err != nil {
		return err
	}

	var skipped int
	for _, rec := range data.Devices {
		if err := m.registry.Restore(rec); err != nil {
			skipped++
		}
	}
	skipped += len(data.Alerts) - m.engine.Restore(data.Alerts)
	if skipped > 0 {
		return fmt.Errorf("import finished with %d records skipped for capacity", skipped)
	}
	return nil
}
