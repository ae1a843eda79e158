package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/drive-monitor/internal/config"
	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/internal/monitor"
	"github.com/benmeehan/drive-monitor/pkg/file"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// stubSource returns fixed values per metric and can fail selected metrics.
type stubSource struct {
	values map[models.MetricKind]float64
	fail   map[models.MetricKind]bool
}

func (s *stubSource) Sample(_ context.Context, _ string, metric models.MetricKind) (float64, error) {
	if s.fail[metric] {
		return 0, errors.New("sensor unavailable")
	}
	return s.values[metric], nil
}

// recordingNotifier counts deliveries; safe for concurrent use.
type recordingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *recordingNotifier) Notify(models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// healthyValues sit below every default warning bound.
func healthyValues() map[models.MetricKind]float64 {
	return map[models.MetricKind]float64{
		models.MetricTemperature:      30.0,
		models.MetricReadSpeed:        2.0,
		models.MetricWriteSpeed:       2.0,
		models.MetricErrorRate:        0.1,
		models.MetricPowerConsumption: 1.0,
		models.MetricCapacityUsage:    50.0,
		models.MetricSectorHealth:     50.0,
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Monitor.UpdateInterval = config.Duration(10 * time.Millisecond)
	return cfg
}

func newTestMonitor(t *testing.T, cfg *config.Config, src *stubSource) *monitor.Monitor {
	t.Helper()
	m := monitor.NewMonitor(cfg, src, nil, nil, file.NewFileService(), nil, zerolog.Nop())
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func waitForSamples(t *testing.T, m *monitor.Monitor, deviceID string, minCount uint64) models.DeviceHealth {
	t.Helper()
	assert.Eventually(t, func() bool {
		snap, err := m.Health(deviceID)
		return err == nil && snap.SampleCount >= minCount
	}, 2*time.Second, 5*time.Millisecond)

	snap, err := m.Health(deviceID)
	assert.NoError(t, err)
	return snap
}

func TestMonitor_SamplesAndAggregates(t *testing.T) {
	src := &stubSource{values: healthyValues()}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.Start("sdb"))
	assert.True(t, m.IsMonitoring("sdb"))

	snap := waitForSamples(t, m, "sdb", 2)
	assert.Equal(t, 30.0, snap.Current[models.MetricTemperature])
	assert.Equal(t, 30.0, snap.Average[models.MetricTemperature])
	assert.Equal(t, 30.0, snap.Min[models.MetricTemperature])
	assert.Equal(t, 30.0, snap.Max[models.MetricTemperature])
	assert.Empty(t, m.Alerts())
}

func TestMonitor_RaisesCriticalAlert(t *testing.T) {
	values := healthyValues()
	values[models.MetricTemperature] = 56.0 // past the 54.0 critical bound
	src := &stubSource{values: values}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.Start("sdb"))
	waitForSamples(t, m, "sdb", 1)

	assert.Eventually(t, func() bool {
		return len(m.Alerts()) > 0
	}, 2*time.Second, 5*time.Millisecond)

	alert := m.Alerts()[0]
	assert.Equal(t, "sdb", alert.DeviceID)
	assert.Equal(t, models.MetricTemperature, alert.Metric)
	assert.True(t, alert.IsCritical)
	assert.False(t, alert.IsAcknowledged)

	snap, err := m.Health("sdb")
	assert.NoError(t, err)
	assert.Greater(t, snap.ErrorCount, uint32(0))
}

func TestMonitor_AcknowledgeAndClear(t *testing.T) {
	values := healthyValues()
	values[models.MetricTemperature] = 50.0 // warning tier
	src := &stubSource{values: values}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.Start("sdb"))
	assert.Eventually(t, func() bool {
		return len(m.Alerts()) > 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.NoError(t, m.Acknowledge(0))
	assert.True(t, m.Alerts()[0].IsAcknowledged)
	assert.Error(t, m.Acknowledge(1<<20))

	warningsBefore := func() uint32 {
		snap, err := m.Health("sdb")
		assert.NoError(t, err)
		return snap.WarningCount
	}()

	m.ClearAlerts()
	snap, err := m.Health("sdb")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, snap.WarningCount, warningsBefore)
}

func TestMonitor_SourceFailureIsolatedPerMetric(t *testing.T) {
	src := &stubSource{
		values: healthyValues(),
		fail:   map[models.MetricKind]bool{models.MetricCapacityUsage: true},
	}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.Start("sdb"))
	snap := waitForSamples(t, m, "sdb", 2)

	// The failed metric never updated; the others did.
	assert.Equal(t, 0.0, snap.Current[models.MetricCapacityUsage])
	assert.Equal(t, 30.0, snap.Current[models.MetricTemperature])
	assert.Greater(t, m.SourceFailures("sdb"), uint64(0))
}

func TestMonitor_StopPreservesHistory(t *testing.T) {
	src := &stubSource{values: healthyValues()}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.Start("sdb"))
	snap := waitForSamples(t, m, "sdb", 2)
	countAtStop := snap.SampleCount

	assert.NoError(t, m.Stop("sdb"))
	assert.False(t, m.IsMonitoring("sdb"))

	// History survives the pause and the record is not duplicated.
	snap, err := m.Health("sdb")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, snap.SampleCount, countAtStop)
	assert.Equal(t, 30.0, snap.Average[models.MetricTemperature])

	assert.NoError(t, m.Start("sdb"))
	assert.True(t, m.IsMonitoring("sdb"))
	assert.Len(t, m.HealthAll(), 1)
}

func TestMonitor_CapacityBound(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.MaxDevices = 2
	src := &stubSource{values: healthyValues()}
	m := newTestMonitor(t, cfg, src)

	assert.NoError(t, m.Start("sdb"))
	assert.NoError(t, m.Start("sdc"))
	assert.Error(t, m.Start("sdd"))
	assert.Len(t, m.HealthAll(), 2)
}

func TestMonitor_StopAllAndShutdown(t *testing.T) {
	src := &stubSource{values: healthyValues()}
	cfg := testConfig()
	m := monitor.NewMonitor(cfg, src, nil, nil, file.NewFileService(), nil, zerolog.Nop())

	assert.NoError(t, m.Start("sdb"))
	assert.NoError(t, m.Start("sdc"))

	assert.NoError(t, m.StopAll())
	assert.False(t, m.IsMonitoring("sdb"))
	assert.False(t, m.IsMonitoring("sdc"))

	assert.NoError(t, m.Shutdown())
	assert.ErrorIs(t, m.Shutdown(), monitor.ErrAlreadyShutdown)
	assert.ErrorIs(t, m.Start("sdb"), monitor.ErrAlreadyShutdown)
}

func TestMonitor_ThresholdOverride(t *testing.T) {
	src := &stubSource{values: healthyValues()}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.SetThreshold(models.MetricTemperature, 25.0))
	threshold, err := m.Threshold(models.MetricTemperature)
	assert.NoError(t, err)
	assert.Equal(t, 25.0, threshold)

	// 30.0 is critical against the lowered threshold (bound 22.5).
	assert.NoError(t, m.Start("sdb"))
	assert.Eventually(t, func() bool {
		return len(m.Alerts()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, m.Alerts()[0].IsCritical)
}

func TestMonitor_NotifierReceivesAlerts(t *testing.T) {
	values := healthyValues()
	values[models.MetricTemperature] = 56.0
	src := &stubSource{values: values}

	notifier := &recordingNotifier{}

	cfg := testConfig()
	m := monitor.NewMonitor(cfg, src, notifier, nil, file.NewFileService(), nil, zerolog.Nop())
	t.Cleanup(func() { _ = m.Shutdown() })

	assert.NoError(t, m.Start("sdb"))
	assert.Eventually(t, func() bool {
		return notifier.Count() > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMonitor_ExportImport(t *testing.T) {
	src := &stubSource{values: healthyValues()}
	m := newTestMonitor(t, testConfig(), src)

	assert.NoError(t, m.Start("sdb"))
	waitForSamples(t, m, "sdb", 2)
	assert.NoError(t, m.StopAll())

	path := filepath.Join(t.TempDir(), "export.json")
	assert.NoError(t, m.Export(path))

	restored := newTestMonitor(t, testConfig(), src)
	assert.NoError(t, restored.Import(path))

	snap, err := restored.Health("sdb")
	assert.NoError(t, err)
	assert.False(t, restored.IsMonitoring("sdb"))
	assert.Greater(t, snap.SampleCount, uint64(0))
	assert.Equal(t, 30.0, snap.Average[models.MetricTemperature])
}

func TestMonitor_ConcurrentCallersNeverTearSnapshots(t *testing.T) {
	src := &stubSource{values: healthyValues()}
	m := newTestMonitor(t, testConfig(), src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sd%c", 'b'+n%4)
			for j := 0; j < 50; j++ {
				_ = m.Start(id)
				if snap, err := m.Health(id); err == nil {
					// Snapshots are copies taken under the lock: a current
					// value is either unset or exactly the stub reading.
					temp := snap.Current[models.MetricTemperature]
					assert.True(t, temp == 0.0 || temp == 30.0)
				}
				_ = m.Stop(id)
				m.IsMonitoring(id)
			}
		}(i)
	}
	wg.Wait()
}
