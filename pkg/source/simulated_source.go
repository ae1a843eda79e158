package source

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/benmeehan/drive-monitor/internal/models"
)

// SimulatedSource produces plausible synthetic readings per metric. Useful
// for development and for drives whose firmware exposes no sensor data.
type SimulatedSource struct{}

// NewSimulatedSource returns a source of synthetic readings.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{}
}

// Sample returns a random value in the metric's nominal operating range.
func (s *SimulatedSource) Sample(_ context.Context, _ string, metric models.MetricKind) (float64, error) {
	switch metric {
	case models.MetricTemperature:
		return 35.0 + float64(rand.Intn(20)), nil // 35-55°C
	case models.MetricReadSpeed:
		return 20.0 + float64(rand.Intn(20)), nil // 20-40 MB/s
	case models.MetricWriteSpeed:
		return 15.0 + float64(rand.Intn(15)), nil // 15-30 MB/s
	case models.MetricErrorRate:
		return float64(rand.Intn(100)) / 1000.0, nil // 0-0.1%
	case models.MetricPowerConsumption:
		return 2.0 + float64(rand.Intn(20))/10.0, nil // 2.0-4.0W
	case models.MetricVibration:
		return float64(rand.Intn(50)) / 10.0, nil // 0-5.0 Hz
	case models.MetricElectromagnetic:
		return float64(rand.Intn(100)) / 100.0, nil // normalized 0-1.0
	case models.MetricCapacityUsage:
		return float64(rand.Intn(100)), nil // 0-100%
	case models.MetricSectorHealth:
		return 95.0 + float64(rand.Intn(5)), nil // 95-100%
	default:
		return 0, fmt.Errorf("unknown metric kind %d", metric)
	}
}
