package source_test

import (
	"context"
	"testing"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/pkg/source"
	"github.com/stretchr/testify/assert"
)

func TestSimulatedSource_ValuesInRange(t *testing.T) {
	s := source.NewSimulatedSource()
	ranges := map[models.MetricKind][2]float64{
		models.MetricTemperature:      {35, 55},
		models.MetricReadSpeed:        {20, 40},
		models.MetricWriteSpeed:       {15, 30},
		models.MetricErrorRate:        {0, 0.1},
		models.MetricPowerConsumption: {2.0, 4.0},
		models.MetricVibration:        {0, 5.0},
		models.MetricElectromagnetic:  {0, 1.0},
		models.MetricCapacityUsage:    {0, 100},
		models.MetricSectorHealth:     {95, 100},
	}

	for metric, bounds := range ranges {
		for i := 0; i < 50; i++ {
			value, err := s.Sample(context.Background(), "sdb", metric)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, value, bounds[0], metric.Name())
			assert.LessOrEqual(t, value, bounds[1], metric.Name())
		}
	}
}

func TestSimulatedSource_UnknownMetric(t *testing.T) {
	s := source.NewSimulatedSource()
	_, err := s.Sample(context.Background(), "sdb", models.MetricKind(99))
	assert.Error(t, err)
}
