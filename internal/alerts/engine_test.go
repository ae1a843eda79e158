package alerts_test

import (
	"errors"
	"testing"

	"github.com/benmeehan/drive-monitor/internal/alerts"
	"github.com/benmeehan/drive-monitor/internal/config"
	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of the NotificationSink interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(alert models.Alert) error {
	args := m.Called(alert)
	return args.Error(0)
}

func newEngine(capacity int, notifier *MockNotifier) *alerts.AlertEngine {
	if notifier == nil {
		return alerts.NewAlertEngine(capacity, 0.8, 0.9, false, nil, nil, zerolog.Nop())
	}
	return alerts.NewAlertEngine(capacity, 0.8, 0.9, true, notifier, nil, zerolog.Nop())
}

func tempOnly() config.MetricFlags {
	return config.MetricFlags{Temperature: true}
}

func snapshotWithTemp(value float64) models.DeviceHealth {
	rec := models.NewDeviceHealth("sdb")
	rec.Current[models.MetricTemperature] = value
	return *rec
}

func TestEvaluate_BelowWarningBound(t *testing.T) {
	e := newEngine(144, nil)

	// Nominal temperature threshold 60.0, warning bound 48.0.
	raised := e.Evaluate(snapshotWithTemp(47.0), tempOnly())
	assert.Empty(t, raised)
}

func TestEvaluate_WarningTier(t *testing.T) {
	e := newEngine(144, nil)

	raised := e.Evaluate(snapshotWithTemp(50.0), tempOnly())
	assert.Len(t, raised, 1)
	assert.False(t, raised[0].IsCritical)
	assert.Equal(t, models.MetricTemperature, raised[0].Metric)
	assert.Equal(t, 50.0, raised[0].CurrentValue)
	assert.Equal(t, 60.0, raised[0].ThresholdValue)
}

func TestEvaluate_CriticalWinsOverWarning(t *testing.T) {
	e := newEngine(144, nil)

	// 56.0 exceeds both the 48.0 warning and 54.0 critical bounds; exactly
	// one alert is raised and it is the critical one.
	raised := e.Evaluate(snapshotWithTemp(56.0), tempOnly())
	assert.Len(t, raised, 1)
	assert.True(t, raised[0].IsCritical)
}

func TestEvaluate_DisabledMetricIgnored(t *testing.T) {
	e := newEngine(144, nil)

	raised := e.Evaluate(snapshotWithTemp(100.0), config.MetricFlags{Capacity: true})
	assert.Empty(t, raised)
}

func TestEvaluate_ThresholdOverride(t *testing.T) {
	e := newEngine(144, nil)

	assert.NoError(t, e.SetThreshold(models.MetricTemperature, 100.0))
	raised := e.Evaluate(snapshotWithTemp(56.0), tempOnly())
	assert.Empty(t, raised)

	threshold, err := e.Threshold(models.MetricTemperature)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, threshold)

	assert.ErrorIs(t, e.SetThreshold(models.MetricKind(99), 1.0), alerts.ErrUnknownMetric)
}

func TestRecord_StoreFull(t *testing.T) {
	e := newEngine(2, nil)

	a := models.Alert{DeviceID: "sdb", Metric: models.MetricTemperature}
	assert.NoError(t, e.Record(a))
	assert.NoError(t, e.Record(a))
	assert.ErrorIs(t, e.Record(a), alerts.ErrStoreFull)

	assert.Len(t, e.Alerts(), 2)
	assert.Equal(t, uint64(1), e.Dropped())
}

func TestRecord_NotifierFailureDoesNotFailRecord(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything).Return(errors.New("broker down"))

	e := newEngine(4, notifier)
	assert.NoError(t, e.Record(models.Alert{DeviceID: "sdb"}))
	assert.Len(t, e.Alerts(), 1)
	notifier.AssertExpectations(t)
}

func TestAcknowledge(t *testing.T) {
	e := newEngine(4, nil)
	assert.NoError(t, e.Record(models.Alert{DeviceID: "sdb"}))

	assert.NoError(t, e.Acknowledge(0))
	assert.True(t, e.Alerts()[0].IsAcknowledged)

	assert.ErrorIs(t, e.Acknowledge(1), alerts.ErrOutOfRange)
	assert.ErrorIs(t, e.Acknowledge(-1), alerts.ErrOutOfRange)
}

func TestClearAll_MakesRoom(t *testing.T) {
	e := newEngine(1, nil)
	assert.NoError(t, e.Record(models.Alert{DeviceID: "sdb"}))
	assert.ErrorIs(t, e.Record(models.Alert{DeviceID: "sdb"}), alerts.ErrStoreFull)

	e.ClearAll()
	assert.Empty(t, e.Alerts())
	assert.NoError(t, e.Record(models.Alert{DeviceID: "sdb"}))
}

func TestAlerts_ReturnsCopy(t *testing.T) {
	e := newEngine(4, nil)
	assert.NoError(t, e.Record(models.Alert{DeviceID: "sdb"}))

	got := e.Alerts()
	got[0].IsAcknowledged = true
	assert.False(t, e.Alerts()[0].IsAcknowledged)
}
