// Package stats maintains per-device running statistics without retaining
// sample history. The mean is the exact incremental form
// (avg*n + sample) / (n+1) over the shared per-device counter.
package stats

import (
	"time"

	"github.com/benmeehan/drive-monitor/internal/models"
)

// Apply folds one sample into the record's statistics for the given metric.
// The shared sample counter is not touched here; call Advance exactly once
// per tick after every enabled metric has been applied.
func Apply(rec *models.DeviceHealth, metric models.MetricKind, sample float64) {
	if !metric.Valid() {
		return
	}
	n := float64(rec.SampleCount)
	rec.Current[metric] = sample
	rec.Average[metric] = (rec.Average[metric]*n + sample) / (n + 1)
	if sample > rec.Max[metric] {
		rec.Max[metric] = sample
	}
	if sample < rec.Min[metric] {
		rec.Min[metric] = sample
	}
}

// Advance moves the shared sample basis forward by one tick. A metric that
// was disabled for this tick silently skips the averaging basis; that is the
// documented behavior, not a bug to fix here.
func Advance(rec *models.DeviceHealth, now time.Time) {
	rec.SampleCount++
	rec.LastUpdate = now
}
