// Package source abstracts metric acquisition. The monitor core never talks
// to hardware; it asks a MetricSource for one value per device per metric
// kind and treats failures as skipped samples.
package source

import (
	"context"

	"github.com/benmeehan/drive-monitor/internal/models"
)

// MetricSource returns a sampled value for one metric of one device.
type MetricSource interface {
	Sample(ctx context.Context, deviceID string, metric models.MetricKind) (float64, error)
}
