// Package observability exposes the monitor's own operational counters as
// Prometheus collectors, so skipped samples and dropped alerts are visible
// rather than silently swallowed.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the monitor's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver, so wiring observability stays optional.
type Metrics struct {
	ticks          prometheus.Counter
	sampleFailures prometheus.Counter
	alertsRaised   *prometheus.CounterVec
	alertsDropped  prometheus.Counter
}

// NewMetrics builds the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_ticks_total",
			Help: "Sampling cycles executed by the scheduler",
		}),
		sampleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_sample_failures_total",
			Help: "Metric samples skipped because the source failed",
		}),
		alertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_alerts_raised_total",
			Help: "Alerts appended to the alert store",
		}, []string{"severity"}),
		alertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_alerts_dropped_total",
			Help: "Alerts rejected because the alert store was full",
		}),
	}
	reg.MustRegister(m.ticks, m.sampleFailures, m.alertsRaised, m.alertsDropped)
	return m
}

// Tick counts one completed sampling cycle.
func (m *Metrics) Tick() {
	if m != nil {
		m.ticks.Inc()
	}
}

// SampleFailure counts one skipped metric sample.
func (m *Metrics) SampleFailure() {
	if m != nil {
		m.sampleFailures.Inc()
	}
}

// AlertRaised counts one stored alert by severity.
func (m *Metrics) AlertRaised(severity string) {
	if m != nil {
		m.alertsRaised.WithLabelValues(severity).Inc()
	}
}

// AlertDropped counts one alert rejected by the full store.
func (m *Metrics) AlertDropped() {
	if m != nil {
		m.alertsDropped.Inc()
	}
}
