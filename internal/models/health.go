package models

import (
	"math"
	"time"
)

// MinSentinel is the initial minimum for every metric before the first sample.
const MinSentinel = math.MaxFloat64

// DeviceHealth holds the running health statistics for one monitored drive.
// SampleCount is shared across all metrics and advances once per tick, so a
// metric that is disabled for some ticks keeps its old average while the
// shared basis moves on.
type DeviceHealth struct {
	DeviceID     string               `json:"device_id"`
	IsMonitoring bool                 `json:"is_monitoring"`
	Current      [MetricCount]float64 `json:"current"`
	Average      [MetricCount]float64 `json:"average"`
	Min          [MetricCount]float64 `json:"min"`
	Max          [MetricCount]float64 `json:"max"`
	SampleCount  uint64               `json:"sample_count"`
	LastUpdate   time.Time            `json:"last_update"`
	WarningCount uint32               `json:"warning_count"`
	ErrorCount   uint32               `json:"error_count"`
}

// NewDeviceHealth returns a record with all running stats reset.
func NewDeviceHealth(deviceID string) *DeviceHealth {
	h := &DeviceHealth{
		DeviceID:     deviceID,
		IsMonitoring: true,
	}
	for i := range h.Min {
		h.Min[i] = MinSentinel
	}
	return h
}

// Clone returns a deep copy so callers never share state with the sampler.
func (h *DeviceHealth) Clone() DeviceHealth {
	return *h
}
