// Package sink holds the outbound collaborator interfaces the monitor calls
// into: alert notification and per-tick health logging. Sink failures are the
// sink's problem; the monitor logs them and keeps going.
package sink

import "github.com/benmeehan/drive-monitor/internal/models"

// NotificationSink delivers newly raised alerts to an operator channel.
type NotificationSink interface {
	Notify(alert models.Alert) error
}

// LogSink receives one device health snapshot per device per tick when
// logging is enabled.
type LogSink interface {
	Append(snapshot models.DeviceHealth) error
}
