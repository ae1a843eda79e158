package models

import "time"

// Alert records one threshold crossing for one metric on one drive.
// Alerts are append-only; acknowledging flips the flag but never removes
// the record.
type Alert struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"device_id"`
	Metric         MetricKind `json:"metric"`
	CurrentValue   float64    `json:"current_value"`
	ThresholdValue float64    `json:"threshold_value"`
	Message        string     `json:"message"`
	Timestamp      time.Time  `json:"timestamp"`
	IsCritical     bool       `json:"is_critical"`
	IsAcknowledged bool       `json:"is_acknowledged"`
}

// Severity returns the alert severity as a label.
func (a Alert) Severity() string {
	if a.IsCritical {
		return "critical"
	}
	return "warning"
}
